package chat

import (
	"context"
	"sync"
)

// EditState is either Viewing (zero value) or Editing a message.
type EditState struct {
	MessageID string
}

// Editing reports whether a message is being edited.
func (s EditState) Editing() bool { return s.MessageID != "" }

func (s EditState) String() string {
	if !s.Editing() {
		return "viewing"
	}
	return "editing(" + s.MessageID + ")"
}

type messageUpdater interface {
	Update(ctx context.Context, id, text string)
}

// EditController holds the single inline edit of a client.
type EditController struct {
	store messageUpdater

	mu    sync.Mutex
	state EditState
}

func newEditController(store messageUpdater) *EditController {
	return &EditController{store: store}
}

// Begin starts editing id. A previous unsaved edit is discarded.
func (e *EditController) Begin(id string) {
	if id == "" {
		return
	}
	e.mu.Lock()
	e.state = EditState{MessageID: id}
	e.mu.Unlock()
}

// Cancel discards the current edit.
func (e *EditController) Cancel() {
	e.mu.Lock()
	e.state = EditState{}
	e.mu.Unlock()
}

// Submit saves text into the edited message and returns to Viewing. It
// reports false and sends nothing when no edit is in progress.
func (e *EditController) Submit(ctx context.Context, text string) bool {
	e.mu.Lock()
	id := e.state.MessageID
	e.state = EditState{}
	e.mu.Unlock()

	if id == "" {
		return false
	}
	e.store.Update(ctx, id, text)
	return true
}

// State returns the current state.
func (e *EditController) State() EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

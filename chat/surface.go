package chat

import (
	"context"
	"errors"

	"github.com/vovakirdan/livechat-sdk-go/livechat"
)

// ConfigErrorText is shown instead of configuration errors.
const ConfigErrorText = "This app is not configured. Create an app in the sync engine " +
	"dashboard and set LIVECHAT_APP_ID (or app_id in the config file) to its id."

// Status of the chat surface.
type Status int

const (
	StatusLoading Status = iota
	StatusError
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusReady:
		return "ready"
	default:
		return "unknown"
	}
}

// View is everything the chat surface shows after one render pass.
type View struct {
	Status    Status
	Err       error
	Handle    string
	Messages  []livechat.Message
	Friends   []string
	Typing    string
	EditingID string
}

// Surface is the chat page of a signed-in user, without the markup.
type Surface struct {
	s    *Session
	edit *EditController
}

// Surface returns the chat surface of the session.
func (s *Session) Surface() *Surface {
	return &Surface{s: s, edit: newEditController(s.Store)}
}

// Render performs one render pass: it announces presence while signed in
// and returns the current view.
func (f *Surface) Render(ctx context.Context) View {
	if f.signedIn() {
		f.s.Presence.Announce(ctx)
	}

	mv := f.s.Store.Current()
	v := View{
		Handle:    f.s.Identity.Handle(),
		Friends:   f.s.Presence.Friends(),
		Typing:    f.s.Typing.Line(),
		EditingID: f.edit.State().MessageID,
	}
	switch {
	case mv.Loading:
		v.Status = StatusLoading
	case mv.Err != nil:
		v.Status = StatusError
		v.Err = mv.Err
	default:
		v.Status = StatusReady
		v.Messages = mv.Messages
	}
	return v
}

// Submit posts text as a new message. Empty text is ignored.
func (f *Surface) Submit(ctx context.Context, text string) (id string, ok bool) {
	if text == "" {
		return "", false
	}
	user, ok := f.user()
	if !ok {
		return "", false
	}
	return f.s.Store.Create(ctx, text, f.s.Identity.Handle(), user.ID), true
}

// KeyDown reports a keystroke of the composer. It does nothing until the
// gate lets the user in.
func (f *Surface) KeyDown(ctx context.Context, key string) {
	if !f.signedIn() {
		return
	}
	f.s.Typing.KeyDown(ctx, key)
}

// BeginEdit switches message id to inline edit mode.
func (f *Surface) BeginEdit(id string) {
	if _, ok := f.user(); !ok {
		return
	}
	f.edit.Begin(id)
}

// SubmitEdit saves the inline edit.
func (f *Surface) SubmitEdit(ctx context.Context, text string) bool {
	if _, ok := f.user(); !ok {
		return false
	}
	return f.edit.Submit(ctx, text)
}

// CancelEdit discards the inline edit.
func (f *Surface) CancelEdit() {
	f.edit.Cancel()
}

// Delete removes message id.
func (f *Surface) Delete(ctx context.Context, id string) {
	if _, ok := f.user(); !ok {
		return
	}
	f.s.Store.Delete(ctx, id)
}

// DeleteAll removes every message currently shown.
func (f *Surface) DeleteAll(ctx context.Context) {
	if _, ok := f.user(); !ok {
		return
	}
	msgs := f.s.Store.Current().Messages
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	f.s.Store.DeleteAll(ctx, ids)
}

func (f *Surface) signedIn() bool {
	return f.s.Gate.Decision().Kind == DecisionChat
}

// user returns the signed-in user when mutations are allowed: the gate has
// let the user in and the collection is neither loading nor failed.
func (f *Surface) user() (*livechat.User, bool) {
	d := f.s.Gate.Decision()
	if d.Kind != DecisionChat {
		return nil, false
	}
	mv := f.s.Store.Current()
	if mv.Loading || mv.Err != nil {
		return nil, false
	}
	return d.User, true
}

// ErrorText renders err for the user. Configuration errors get a fixed
// instruction; coded errors show their message.
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	if livechat.IsConfigError(err) {
		return ConfigErrorText
	}
	var le *livechat.Error
	if errors.As(err, &le) && le.Message != "" {
		return le.Message
	}
	return err.Error()
}

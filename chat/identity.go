package chat

import (
	"fmt"
	"math/rand/v2"
)

var adjectives = []string{
	"amber", "brave", "calm", "clever", "cosmic", "dusty", "eager", "fuzzy",
	"gentle", "happy", "jolly", "keen", "lucky", "mellow", "nimble", "quiet",
	"rapid", "shiny", "sleepy", "swift", "tidy", "witty", "young", "zesty",
}

var animals = []string{
	"badger", "beaver", "bison", "cobra", "crane", "dingo", "falcon", "ferret",
	"gecko", "heron", "ibis", "koala", "lemur", "lynx", "marmot", "otter",
	"panda", "puffin", "quokka", "raven", "salmon", "tapir", "walrus", "yak",
}

// RandomHandle returns a display handle such as "quiet-heron-07".
func RandomHandle() string {
	return fmt.Sprintf("%s-%s-%02d",
		adjectives[rand.IntN(len(adjectives))],
		animals[rand.IntN(len(animals))],
		rand.IntN(100))
}

// Identity is the session handle. It is chosen once per session and is
// independent of the signed-in account.
type Identity struct {
	handle string
}

// NewIdentity returns an Identity for handle, or a random one if handle is empty.
func NewIdentity(handle string) Identity {
	if handle == "" {
		handle = RandomHandle()
	}
	return Identity{handle: handle}
}

// Handle returns the display handle.
func (i Identity) Handle() string { return i.handle }

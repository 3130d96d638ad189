package dialog

import "fmt"

// Key identifies a dialog by Call-ID and the local/remote tag pair
// (RFC3261 §12). Grounded on pkg/sip/dialog/key.go's generateKey, kept
// as a plain comparable struct so it can be a Go map key directly.
type Key struct {
	CallID    string
	LocalTag  string
	RemoteTag string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s", k.CallID, k.LocalTag, k.RemoteTag)
}

// Empty reports whether the key has no Call-ID, meaning it cannot
// identify an established dialog yet (e.g. before the peer's tag is known).
func (k Key) Empty() bool { return k.CallID == "" }

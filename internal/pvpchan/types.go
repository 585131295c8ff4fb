package pvpchan

// Errors
var (
    ErrInvalidArgs = errf("invalid arguments")
    ErrNotTracked  = errf("channel not tracked")
)

type staticErr string
func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }

// Change describes what a roster event did to one nick.
type Change struct {
    Nick     string
    Channels []string // channels the nick was removed from or renamed in
}

// namePrefixes are the membership prefixes a NAMES reply may carry.
const namePrefixes = "~&@%+"

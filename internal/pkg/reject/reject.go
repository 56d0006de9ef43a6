// Package reject defines the typed rejection outcomes a scan can produce.
// A rejection is an expected result of validation or the attendance state
// machine, not an internal fault; services return it through the error value
// so handlers can tell it apart from transient infrastructure failures.
package reject

import "errors"

// Code is the stable machine-readable rejection code surfaced on the wire.
// Clients must branch on the code, never on the human message text.
type Code string

const (
	MalformedToken    Code = "MALFORMED_TOKEN"
	BadSignature      Code = "BAD_SIGNATURE"
	Expired           Code = "EXPIRED"
	NotFound          Code = "NOT_FOUND"
	EntryLimitReached Code = "ENTRY_LIMIT_REACHED"
	ExitLimitReached  Code = "EXIT_LIMIT_REACHED"
	Timeout           Code = "TIMEOUT"
)

// Reject carries a rejection code and a human-readable message.
type Reject struct {
	Code    Code
	Message string
}

func New(code Code, message string) *Reject {
	return &Reject{Code: code, Message: message}
}

func (r *Reject) Error() string { return string(r.Code) + ": " + r.Message }

// As unwraps err into a *Reject if it is one.
func As(err error) (*Reject, bool) {
	var r *Reject
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

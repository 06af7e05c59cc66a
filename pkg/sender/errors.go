package sender

import "errors"

var ErrNoMessageID = errors.New("provider response carried no message id")

// SendError wraps any failure while submitting a message: transport,
// authentication, or provider-side. It is never retried here.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return "failed to send email: " + e.Err.Error() }

func (e *SendError) Unwrap() error { return e.Err }

package errno

import (
	"errors"
	"fmt"
)

// BizError carries a public Errno and the internal cause behind it.
type BizError struct {
	errno   *Errno
	message string
	cause   error
}

// NewBizError wraps cause under the given errno.
func NewBizError(e *Errno, cause error) *BizError {
	if e == nil {
		e = ErrUnknown
	}
	return &BizError{errno: e, cause: cause}
}

// Errorf returns a BizError whose public message replaces the errno default.
func Errorf(e *Errno, format string, args ...interface{}) *BizError {
	b := NewBizError(e, nil)
	b.message = fmt.Sprintf(format, args...)
	return b
}

func (b *BizError) Error() string {
	msg := b.publicMessage()
	if b.cause == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, b.cause)
}

func (b *BizError) publicMessage() string {
	if b.message != "" {
		return b.message
	}
	return b.errno.Message
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (b *BizError) Unwrap() error { return b.cause }

// As lets errors.As(err, **Errno) find the public errno.
func (b *BizError) As(target interface{}) bool {
	if t, ok := target.(**Errno); ok {
		*t = b.errno
		return true
	}
	return false
}

// Is matches the wrapped errno sentinel.
func (b *BizError) Is(target error) bool {
	e, ok := target.(*Errno)
	return ok && e == b.errno
}

// Errno returns the public code.
func (b *BizError) Errno() *Errno { return b.errno }

// Public returns the message that is safe to show to clients.
func Public(err error) (int, string) {
	var b *BizError
	if errors.As(err, &b) {
		return b.errno.Code, b.publicMessage()
	}
	var e *Errno
	if errors.As(err, &e) {
		return e.Code, e.Message
	}
	return ErrInternalServer.Code, ErrInternalServer.Message
}

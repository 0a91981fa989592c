package camera

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/camctl/internal/hw/gphoto"
)

var (
	// ErrNotConnected means there is no usable session.
	ErrNotConnected = errors.New("camera not connected")
	// ErrDisconnected means an I/O fault during a session operation demoted
	// the connection.
	ErrDisconnected = errors.New("camera disconnected")
	// ErrModelNotFound means session init found no matching device. The
	// camera is off or unplugged; retry later.
	ErrModelNotFound = errors.New("camera model not found")
	// ErrLookupFailed means a catalog or configuration resolution step failed.
	ErrLookupFailed  = errors.New("lookup failed")
	ErrCaptureFailed = errors.New("capture failed")
	ErrDecodeFailed  = errors.New("decode failed")
	// ErrNotFound means a configuration name resolved to no widget.
	ErrNotFound       = errors.New("setting not found")
	ErrCoercionFailed = errors.New("value does not fit setting")
	// ErrWriteFailed means the device rejected a configuration commit.
	ErrWriteFailed = errors.New("setting write failed")
)

var (
	// ErrNotEnum is returned when choices are asked of a non-enum widget.
	ErrNotEnum = fmt.Errorf("setting has no choices: %w", ErrCoercionFailed)
	// ErrClosed is returned after Close.
	ErrClosed = fmt.Errorf("camera closed: %w", ErrNotConnected)
)

const opDecode gphoto.Op = "decode"

// OpError reports a failed operation. errors.Is matches Err, the
// sentinel; errors.As with a gphoto.Result extracts the device code.
type OpError struct {
	Op    gphoto.Op
	Name  string // setting name, when the operation had one
	Code  gphoto.Result
	Err   error
	Cause error
}

func newOpError(op gphoto.Op, name string, sentinel, cause error) *OpError {
	e := &OpError{Op: op, Name: name, Err: sentinel, Cause: cause}
	var code gphoto.Result
	if errors.As(cause, &code) {
		e.Code = code
	}
	return e
}

func (e *OpError) Error() string {
	op := string(e.Op)
	if e.Name != "" {
		op += " " + e.Name
	}
	switch {
	case e.Code.Failed():
		return fmt.Sprintf("%s: %v (%d: %s)", op, e.Err, int(e.Code), e.Code)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v: %v", op, e.Err, e.Cause)
	}
	return fmt.Sprintf("%s: %v", op, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

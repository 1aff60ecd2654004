package stitch

import (
	"github.com/pkg/errors"

	"github.com/GKT-github/Ethsimple-nostitch/svimage/transform"
)

// FrameError indicates a captured frame set this stitch cycle cannot use:
// missing camera, empty frame, or the wrong size for the current calibration.
// The caller should skip the frame and retry on the next capture cycle;
// pipeline state is untouched.
type FrameError struct {
	msg string
}

func (e *FrameError) Error() string {
	return e.msg
}

// NewFrameError returns a FrameError with the given description.
func NewFrameError(format string, args ...interface{}) *FrameError {
	return &FrameError{msg: errors.Errorf(format, args...).Error()}
}

// IsFrameError reports whether err is, or wraps, a FrameError.
func IsFrameError(err error) bool {
	var fe *FrameError
	return errors.As(err, &fe)
}

// OpError indicates a remap/blend/normalize kernel failed mid-frame. It is
// treated like a FrameError at frame granularity: abort this frame, log,
// continue.
type OpError struct {
	Op    string
	cause error
}

func (e *OpError) Error() string {
	return errors.Wrapf(e.cause, "%s failed", e.Op).Error()
}

func (e *OpError) Unwrap() error {
	return e.cause
}

// NewOpError wraps a kernel failure with the operation name.
func NewOpError(op string, cause error) *OpError {
	return &OpError{Op: op, cause: cause}
}

var errNilInput = errors.New("nil input")

func sizeMismatch(gotW, gotH, wantW, wantH int) error {
	return errors.Errorf("size (%d,%d) does not match expected (%d,%d)", gotW, gotH, wantW, wantH)
}

// IsGeometryError reports whether err is, or wraps, a degenerate-transform
// error from warp map construction.
func IsGeometryError(err error) bool {
	var ge *transform.GeometryError
	return errors.As(err, &ge)
}

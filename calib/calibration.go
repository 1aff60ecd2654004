// Package calib is the boundary to the calibration collaborator. It defines
// the data the stitching core needs per camera and a Provider abstraction so
// file-based, programmatic, or interactive calibration sources are
// interchangeable.
package calib

import (
	"context"
	"fmt"
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/GKT-github/Ethsimple-nostitch/svimage/transform"
)

// ConfigError indicates calibration data is missing, malformed, or covers the
// wrong camera count. It is fatal to pipeline startup; there is no recovery
// without new calibration.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string {
	return e.msg
}

// NewConfigError returns a ConfigError with the given description.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{msg: errors.Errorf(format, args...).Error()}
}

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Crop describes the optional final output transform: the four canvas points
// (top-left, top-right, bottom-left, bottom-right) that map to the corners of
// the display-resolution output.
type Crop struct {
	TL, TR, BL, BR r2.Point
	Output         image.Point
}

// Setup is one complete calibration for the stitching pipeline: one warp
// strategy per camera plus the shared processing parameters. Immutable once
// built; a recalibration produces a new Setup.
type Setup struct {
	FrameSize          image.Point
	Scale              float64
	FadeDistance       float64
	GainUpdateInterval int
	Names              []string
	Strategies         []transform.WarpStrategy
	Crop               *Crop
}

// Validate checks the setup is usable before any frame processing begins.
func (s *Setup) Validate() error {
	if len(s.Strategies) == 0 {
		return NewConfigError("calibration has no cameras")
	}
	if len(s.Names) != 0 && len(s.Names) != len(s.Strategies) {
		return NewConfigError("calibration has %d camera names for %d cameras", len(s.Names), len(s.Strategies))
	}
	if s.FrameSize.X <= 0 || s.FrameSize.Y <= 0 {
		return NewConfigError("invalid frame size %v", s.FrameSize)
	}
	if s.Scale <= 0 || s.Scale > 1 {
		return NewConfigError("processing scale must be in (0, 1], got %f", s.Scale)
	}
	if s.Crop != nil && (s.Crop.Output.X <= 0 || s.Crop.Output.Y <= 0) {
		return NewConfigError("invalid crop output size %v", s.Crop.Output)
	}
	return nil
}

// CameraName returns the configured name for a camera index, or a positional
// fallback.
func (s *Setup) CameraName(i int) string {
	if i >= 0 && i < len(s.Names) {
		return s.Names[i]
	}
	return fmt.Sprintf("camera%d", i)
}

// Provider produces a calibration Setup. Implementations may read files, ask
// a user to click correspondence points, or hand back hardcoded parameters;
// the pipeline behaves identically regardless.
type Provider interface {
	Setup(ctx context.Context) (*Setup, error)
}

// StaticProvider wraps an already-assembled Setup.
type StaticProvider struct {
	S *Setup
}

// Setup implements Provider.
func (p *StaticProvider) Setup(context.Context) (*Setup, error) {
	if err := p.S.Validate(); err != nil {
		return nil, err
	}
	return p.S, nil
}

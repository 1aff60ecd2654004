package stitch

import (
	"context"
	"image"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/GKT-github/Ethsimple-nostitch/calib"
	"github.com/GKT-github/Ethsimple-nostitch/svimage"
	"github.com/GKT-github/Ethsimple-nostitch/svimage/transform"
)

// DefaultGainUpdateInterval is how many stitched frames pass between gain
// re-estimations when the calibration does not override it.
const DefaultGainUpdateInterval = 10

// Pipeline fuses the camera views into one composite every frame:
// scale -> remap -> widen -> gain -> feed -> blend -> normalize -> crop.
//
// Warp maps and blend masks are built once from calibration and then only
// read; the gain table is the single piece of cross-frame mutable state and
// the GainCompensator guards it internally. Stitch itself is meant to be
// called from one goroutine at a time.
type Pipeline struct {
	logger golog.Logger
	setup  *calib.Setup

	scaledSize image.Point
	canvas     image.Point
	maps       []*svimage.WarpMap // corners rebased to canvas origin
	masks      []*image.Gray
	blender    *Blender
	gains      *GainCompensator
	cropMap    *svimage.WarpMap

	gainInterval int
	frameCount   int
}

// NewPipeline builds warp maps, blend masks, and the accumulation buffers
// for the given calibration. Calibration problems surface here, before any
// frame processing begins.
func NewPipeline(setup *calib.Setup, logger golog.Logger) (*Pipeline, error) {
	if setup == nil {
		return nil, calib.NewConfigError("nil calibration setup")
	}
	if err := setup.Validate(); err != nil {
		return nil, err
	}

	n := len(setup.Strategies)
	maps := make([]*svimage.WarpMap, n)
	for i, strategy := range setup.Strategies {
		wm, err := strategy.BuildWarpMap(setup.FrameSize)
		if err != nil {
			return nil, errors.Wrapf(err, "building warp map for %s", setup.CameraName(i))
		}
		maps[i] = wm
	}

	// Rebase every tile so the canvas origin is (0, 0).
	origin := maps[0].Corner
	extent := maps[0].Corner.Add(maps[0].Size)
	for _, wm := range maps[1:] {
		if wm.Corner.X < origin.X {
			origin.X = wm.Corner.X
		}
		if wm.Corner.Y < origin.Y {
			origin.Y = wm.Corner.Y
		}
		e := wm.Corner.Add(wm.Size)
		if e.X > extent.X {
			extent.X = e.X
		}
		if e.Y > extent.Y {
			extent.Y = e.Y
		}
	}
	canvas := extent.Sub(origin)
	for i, wm := range maps {
		maps[i] = &svimage.WarpMap{X: wm.X, Y: wm.Y, Corner: wm.Corner.Sub(origin), Size: wm.Size}
	}

	mb := MaskBuilder{FadeDistance: setup.FadeDistance}
	masks, err := mb.Build(canvas, maps)
	if err != nil {
		return nil, calib.NewConfigError("building blend masks: %v", err)
	}

	// A negative interval disables gain re-estimation entirely; the table
	// then stays at identity.
	interval := setup.GainUpdateInterval
	if interval == 0 {
		interval = DefaultGainUpdateInterval
	}

	p := &Pipeline{
		logger: logger,
		setup:  setup,
		scaledSize: image.Point{
			X: int(float64(setup.FrameSize.X) * setup.Scale),
			Y: int(float64(setup.FrameSize.Y) * setup.Scale),
		},
		canvas:       canvas,
		maps:         maps,
		masks:        masks,
		blender:      NewBlender(canvas),
		gains:        NewGainCompensator(n, DefaultGainSettings()),
		gainInterval: interval,
	}

	if setup.Crop != nil {
		p.cropMap, err = buildCropMap(setup.Crop)
		if err != nil {
			return nil, err
		}
	}

	logger.Infow("stitch pipeline ready",
		"cameras", n,
		"canvas", canvas,
		"scale", setup.Scale,
		"gain_update_interval", interval,
	)
	return p, nil
}

// buildCropMap turns the crop corners into a warp map over the output
// resolution: each display pixel samples the blended canvas through the
// homography mapping the output rectangle onto the crop quad.
func buildCropMap(crop *calib.Crop) (*svimage.WarpMap, error) {
	w := float64(crop.Output.X)
	h := float64(crop.Output.Y)
	outCorners := []r2.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: 0, Y: h}, {X: w, Y: h}}
	canvasCorners := []r2.Point{crop.TL, crop.TR, crop.BL, crop.BR}

	hm, err := transform.GetPerspectiveTransform(outCorners, canvasCorners)
	if err != nil {
		return nil, errors.Wrap(err, "building output crop transform")
	}

	wm := svimage.NewWarpMap(image.Point{}, crop.Output)
	for y := 0; y < crop.Output.Y; y++ {
		for x := 0; x < crop.Output.X; x++ {
			pt, ok := hm.Apply(r2.Point{X: float64(x), Y: float64(y)})
			if !ok {
				continue
			}
			wm.X.Set(x, y, float32(pt.X))
			wm.Y.Set(x, y, float32(pt.Y))
		}
	}
	return wm, nil
}

// NumCameras returns the camera count of the active calibration.
func (p *Pipeline) NumCameras() int {
	return len(p.maps)
}

// Canvas returns the shared canvas dimensions.
func (p *Pipeline) Canvas() image.Point {
	return p.canvas
}

// WarpMaps returns the per-camera warp maps (read-only by convention).
func (p *Pipeline) WarpMaps() []*svimage.WarpMap {
	return p.maps
}

// Masks returns the per-camera blend masks (read-only by convention).
func (p *Pipeline) Masks() []*image.Gray {
	return p.masks
}

// Gains returns a copy of the current gain table.
func (p *Pipeline) Gains() [][3]float64 {
	return p.gains.Gains()
}

// Stitch composites one frame set into the output canvas. Any per-frame
// failure aborts this frame without touching the warp maps, masks, or gain
// table; the caller should retry with the next captured set.
func (p *Pipeline) Stitch(ctx context.Context, frames []*svimage.Image) (*svimage.Image, error) {
	if err := p.validateFrames(frames); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The remap kernels already parallelize over pixels, so cameras are
	// processed in order rather than racing each other for cores.
	warped := make([]*svimage.Image, len(frames))
	for i, frame := range frames {
		scaled := frame.Resize(p.scaledSize.X, p.scaledSize.Y)
		warped[i] = svimage.Remap(scaled, p.maps[i])
	}

	if p.gainInterval > 0 && p.frameCount%p.gainInterval == 0 {
		if err := p.refreshGains(warped); err != nil {
			p.logger.Warnw("gain re-estimation skipped", "error", err)
		}
	}

	p.blender.Reset()
	for i, w := range warped {
		f16 := w.ToImage16()
		if err := p.gains.Apply(f16, i); err != nil {
			return nil, err
		}
		if err := p.blender.Feed(f16, p.masks[i], p.maps[i].Corner); err != nil {
			return nil, errors.Wrapf(err, "feeding %s", p.setup.CameraName(i))
		}
	}

	canvas, _, err := p.blender.Blend()
	if err != nil {
		return nil, err
	}

	out := canvas
	if p.cropMap != nil {
		out = svimage.Remap(canvas, p.cropMap)
	}

	p.frameCount++
	return out, nil
}

func (p *Pipeline) validateFrames(frames []*svimage.Image) error {
	if len(frames) != len(p.maps) {
		return NewFrameError("got %d frames, calibration expects %d", len(frames), len(p.maps))
	}
	for i, f := range frames {
		if f == nil {
			return NewFrameError("missing frame for %s", p.setup.CameraName(i))
		}
		if f.Width() != p.setup.FrameSize.X || f.Height() != p.setup.FrameSize.Y {
			return NewFrameError("%s frame is (%d,%d), calibration expects %v",
				p.setup.CameraName(i), f.Width(), f.Height(), p.setup.FrameSize)
		}
	}
	return nil
}

// refreshGains re-estimates the gain table from the just-warped frames.
func (p *Pipeline) refreshGains(warped []*svimage.Image) error {
	corners := make([]image.Point, len(p.maps))
	for i, wm := range p.maps {
		corners[i] = wm.Corner
	}
	return p.gains.Estimate(warped, p.masks, corners)
}

// Run stitches frames from src until ctx is canceled. Recoverable per-frame
// failures are logged and skipped so the composite simply is not updated for
// that cycle; onFrame receives every successful composite.
func (p *Pipeline) Run(
	ctx context.Context,
	src FrameSource,
	captureTimeout time.Duration,
	clk clock.Clock,
	onFrame func(*svimage.Image),
) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frames, err := WaitForFrames(ctx, src, captureTimeout, clk)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Warnw("skipping capture cycle", "error", err)
			continue
		}
		canvas, err := p.Stitch(ctx, frames)
		if err != nil {
			if IsFrameError(err) {
				p.logger.Warnw("skipping frame", "error", err)
				continue
			}
			return err
		}
		onFrame(canvas)
	}
}

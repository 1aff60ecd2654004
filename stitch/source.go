package stitch

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/GKT-github/Ethsimple-nostitch/svimage"
)

// FrameSource delivers one frame per camera per capture cycle. Implemented by
// the capture collaborator; the pipeline only assumes frames arrive as
// decoded in-memory buffers of the calibrated resolution.
type FrameSource interface {
	NextFrames(ctx context.Context) ([]*svimage.Image, error)
}

// WaitForFrames waits for the next frame set with a bounded timeout so a
// stalled camera can never block a stitch cycle indefinitely. A timeout is a
// FrameError, recoverable on the next cycle; cancellation of ctx is returned
// as-is so shutdown is not misreported as a frame failure.
func WaitForFrames(ctx context.Context, src FrameSource, timeout time.Duration, clk clock.Clock) ([]*svimage.Image, error) {
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		frames []*svimage.Image
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		frames, err := src.NextFrames(ctx)
		ch <- result{frames, err}
	}()

	timer := clk.Timer(timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.frames, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, NewFrameError("timed out after %v waiting for camera frames", timeout)
	}
}

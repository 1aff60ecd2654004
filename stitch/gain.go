package stitch

import (
	"image"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/GKT-github/Ethsimple-nostitch/svimage"
	"github.com/GKT-github/Ethsimple-nostitch/utils"
)

// GainSettings bounds and tunes exposure compensation.
type GainSettings struct {
	// MinGain and MaxGain clamp every estimated gain; unclamped gains
	// under near-zero or saturated overlap statistics can diverge.
	MinGain, MaxGain float64
	// OverlapThreshold is the minimum blend-mask weight a pixel needs, in
	// both cameras, to count toward overlap statistics.
	OverlapThreshold uint8
}

// DefaultGainSettings matches the ranges the pipeline ships with.
func DefaultGainSettings() GainSettings {
	return GainSettings{MinGain: 0.3, MaxGain: 3.0, OverlapThreshold: 32}
}

// GainCompensator estimates and applies per-camera, per-channel
// multiplicative exposure corrections so overlapping regions from different
// cameras agree in brightness.
//
// With more than two cameras the pairwise overlap ratios are resolved into
// one consistent gain vector by a regularized least-squares solve over the
// overlap graph (the same normal equations OpenCV's gain compensator uses):
// the data term pulls overlapping means together, the prior term keeps every
// gain near 1 so the solution cannot oscillate between refreshes.
//
// Estimate writes the gain table under a lock and Apply reads a snapshot of
// it, so a frame in flight never observes a half-updated gain vector.
type GainCompensator struct {
	settings GainSettings

	mu    sync.RWMutex
	gains [][3]float64
}

// NewGainCompensator returns a compensator for numCameras cameras with all
// gains at 1 (identity).
func NewGainCompensator(numCameras int, settings GainSettings) *GainCompensator {
	gains := make([][3]float64, numCameras)
	for i := range gains {
		gains[i] = [3]float64{1, 1, 1}
	}
	return &GainCompensator{settings: settings, gains: gains}
}

// Gains returns a copy of the current per-camera channel gains.
func (gc *GainCompensator) Gains() [][3]float64 {
	gc.mu.RLock()
	defer gc.mu.RUnlock()
	out := make([][3]float64, len(gc.gains))
	copy(out, gc.gains)
	return out
}

// overlapStats holds, for one ordered camera pair, the per-channel mean
// intensity of the first camera within the shared overlap and the overlap
// pixel count.
type overlapStats struct {
	mean  [3]float64
	count float64
}

// Estimate recomputes the gain table from the current warped frames and
// blend masks. Pairs with no overlap are skipped rather than failing the
// whole compensator; if nothing overlaps the table is left unchanged.
func (gc *GainCompensator) Estimate(warped []*svimage.Image, masks []*image.Gray, corners []image.Point) error {
	n := len(gc.gains)
	if len(warped) != n || len(masks) != n || len(corners) != n {
		return NewOpError("gain estimate", sizeMismatch(len(warped), len(masks), n, n))
	}

	stats := make([][]overlapStats, n)
	for i := range stats {
		stats[i] = make([]overlapStats, n)
	}

	anyOverlap := false
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			si, sj, ok := gc.pairStats(warped[i], masks[i], corners[i], warped[j], masks[j], corners[j])
			if !ok {
				continue
			}
			stats[i][j] = si
			stats[j][i] = sj
			anyOverlap = true
		}
	}
	if !anyOverlap {
		return nil
	}

	var gains [3][]float64
	for ch := 0; ch < 3; ch++ {
		g, ok := solveGains(stats, ch)
		if !ok {
			return nil
		}
		gains[ch] = g
	}

	gc.mu.Lock()
	defer gc.mu.Unlock()
	for cam := 0; cam < n; cam++ {
		for ch := 0; ch < 3; ch++ {
			gc.gains[cam][ch] = gc.clamp(gains[ch][cam])
		}
	}
	return nil
}

func (gc *GainCompensator) clamp(g float64) float64 {
	if g < gc.settings.MinGain {
		return gc.settings.MinGain
	}
	if g > gc.settings.MaxGain {
		return gc.settings.MaxGain
	}
	return g
}

// pairStats computes per-channel overlap means for both cameras of a pair.
// ok is false when the tiles do not overlap on the canvas or no pixel clears
// the weight threshold in both masks.
func (gc *GainCompensator) pairStats(
	fi *svimage.Image, mi *image.Gray, ci image.Point,
	fj *svimage.Image, mj *image.Gray, cj image.Point,
) (overlapStats, overlapStats, bool) {
	ri := image.Rectangle{Min: ci, Max: ci.Add(image.Point{fi.Width(), fi.Height()})}
	rj := image.Rectangle{Min: cj, Max: cj.Add(image.Point{fj.Width(), fj.Height()})}
	overlap := ri.Intersect(rj)
	if overlap.Empty() {
		return overlapStats{}, overlapStats{}, false
	}

	thresh := gc.settings.OverlapThreshold
	var si, sj overlapStats
	for cy := overlap.Min.Y; cy < overlap.Max.Y; cy++ {
		for cx := overlap.Min.X; cx < overlap.Max.X; cx++ {
			xi, yi := cx-ci.X, cy-ci.Y
			xj, yj := cx-cj.X, cy-cj.Y
			if mi.GrayAt(xi, yi).Y < thresh || mj.GrayAt(xj, yj).Y < thresh {
				continue
			}
			ri, gi, bi := fi.GetRGB(xi, yi)
			rj2, gj, bj := fj.GetRGB(xj, yj)
			si.mean[0] += float64(ri)
			si.mean[1] += float64(gi)
			si.mean[2] += float64(bi)
			sj.mean[0] += float64(rj2)
			sj.mean[1] += float64(gj)
			sj.mean[2] += float64(bj)
			si.count++
			sj.count++
		}
	}
	if si.count == 0 {
		return overlapStats{}, overlapStats{}, false
	}
	for ch := 0; ch < 3; ch++ {
		si.mean[ch] /= si.count
		sj.mean[ch] /= sj.count
	}
	return si, sj, true
}

// Regularization weights for the least-squares gain solve. alpha scales the
// pairwise brightness agreement term, beta the keep-gain-near-1 prior.
const (
	gainAlpha = 0.03
	gainBeta  = 100.0
)

// solveGains resolves the pairwise overlap means for one channel into a
// consistent per-camera gain vector.
func solveGains(stats [][]overlapStats, ch int) ([]float64, bool) {
	n := len(stats)
	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			count := stats[i][j].count
			if count == 0 {
				continue
			}
			iij := stats[i][j].mean[ch]
			iji := stats[j][i].mean[ch]
			b.SetVec(i, b.AtVec(i)+gainBeta*count)
			a.Set(i, i, a.At(i, i)+gainBeta*count+2*gainAlpha*iij*iij*count)
			a.Set(i, j, a.At(i, j)-2*gainAlpha*iij*iji*count)
		}
	}
	// Cameras with no overlap at all keep gain 1.
	for i := 0; i < n; i++ {
		if a.At(i, i) == 0 {
			a.Set(i, i, 1)
			b.SetVec(i, 1)
		}
	}

	var g mat.VecDense
	if err := g.SolveVec(a, b); err != nil {
		return nil, false
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = g.AtVec(i)
	}
	return out, true
}

// Apply multiplies every pixel of the wide-intermediate frame by the given
// camera's current channel gains, clamping to the signed 16-bit range. The
// gain vector is snapshotted once so the whole frame sees one consistent
// table.
func (gc *GainCompensator) Apply(frame *svimage.Image16, cam int) error {
	gc.mu.RLock()
	if cam < 0 || cam >= len(gc.gains) {
		gc.mu.RUnlock()
		return NewOpError("gain apply", sizeMismatch(cam, 0, len(gc.gains), 0))
	}
	gain := gc.gains[cam]
	gc.mu.RUnlock()

	size := image.Point{X: frame.Width(), Y: frame.Height()}
	utils.ParallelForEachPixel(size, func(x, y int) {
		r, g, b := frame.Get(x, y)
		frame.Set(x, y,
			svimage.ClampInt16(int32(float64(r)*gain[0])),
			svimage.ClampInt16(int32(float64(g)*gain[1])),
			svimage.ClampInt16(int32(float64(b)*gain[2])),
		)
	})
	return nil
}

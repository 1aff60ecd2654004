package calib

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/GKT-github/Ethsimple-nostitch/svimage/transform"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	test.That(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644), test.ShouldBeNil)
}

const manualConfigYAML = `frame_width: 1280
frame_height: 800
scale: 0.65
projection: homography
fade_distance: 40
gain_update_interval: 10
cameras:
  - front
  - right
`

const warpPointsYAML = `cameras:
  - src: [[100, 100], [700, 100], [100, 500], [700, 500]]
    dst: [[0, 0], [320, 0], [0, 400], [320, 400]]
  - src: [[100, 100], [700, 100], [100, 500], [700, 500]]
    dst: [[320, 0], [640, 0], [320, 400], [640, 400]]
`

func TestFileProviderManualMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", manualConfigYAML)
	writeFile(t, dir, "warp_points.yaml", warpPointsYAML)

	p := &FileProvider{Dir: dir}
	setup, err := p.Setup(context.Background())
	test.That(t, err, test.ShouldBeNil)

	test.That(t, setup.FrameSize, test.ShouldResemble, image.Point{X: 1280, Y: 800})
	test.That(t, setup.Scale, test.ShouldEqual, 0.65)
	test.That(t, setup.FadeDistance, test.ShouldEqual, 40.0)
	test.That(t, setup.GainUpdateInterval, test.ShouldEqual, 10)
	test.That(t, setup.Names, test.ShouldResemble, []string{"front", "right"})
	test.That(t, setup.Strategies, test.ShouldHaveLength, 2)
	test.That(t, setup.Crop, test.ShouldBeNil)

	mh, ok := setup.Strategies[0].(*transform.ManualHomography)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, mh.Src[0], test.ShouldResemble, r2.Point{X: 100, Y: 100})
	test.That(t, mh.Dst[3], test.ShouldResemble, r2.Point{X: 320, Y: 400})
	test.That(t, mh.Scale, test.ShouldEqual, 0.65)
}

func TestFileProviderIntrinsicMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `frame_width: 1280
frame_height: 800
scale: 1.0
projection: spherical
cameras:
  - front
`)
	writeFile(t, dir, "camparam0.yaml", `focal_length: 350
intrinsic:
  - [400, 0, 640]
  - [0, 400, 400]
  - [0, 0, 1]
rotation:
  - [1, 0, 0]
  - [0, 1, 0]
  - [0, 0, 1]
`)

	p := &FileProvider{Dir: dir}
	setup, err := p.Setup(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, setup.Strategies, test.ShouldHaveLength, 1)

	ip, ok := setup.Strategies[0].(*transform.IntrinsicProjection)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ip.Kind, test.ShouldEqual, transform.ProjectionSpherical)
	test.That(t, ip.Focal, test.ShouldEqual, 350.0)
	test.That(t, ip.Intrinsics.Fx, test.ShouldEqual, 400.0)
	test.That(t, ip.Intrinsics.Ppx, test.ShouldEqual, 640.0)
	test.That(t, ip.Rotation[2][2], test.ShouldEqual, 1.0)
}

func TestFileProviderCrop(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", manualConfigYAML)
	writeFile(t, dir, "warp_points.yaml", warpPointsYAML)
	writeFile(t, dir, "crop.yaml", `output: [1920, 1080]
tl: [10, 20]
tr: [630, 20]
bl: [10, 380]
br: [630, 380]
`)

	p := &FileProvider{Dir: dir}
	setup, err := p.Setup(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, setup.Crop, test.ShouldNotBeNil)
	test.That(t, setup.Crop.Output, test.ShouldResemble, image.Point{X: 1920, Y: 1080})
	test.That(t, setup.Crop.TL, test.ShouldResemble, r2.Point{X: 10, Y: 20})
	test.That(t, setup.Crop.BR, test.ShouldResemble, r2.Point{X: 630, Y: 380})
}

func TestFileProviderMissingConfig(t *testing.T) {
	p := &FileProvider{Dir: t.TempDir()}
	_, err := p.Setup(context.Background())
	test.That(t, IsConfigError(err), test.ShouldBeTrue)
}

func TestFileProviderCameraCountMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", manualConfigYAML)
	// Only one camera's points for a two camera config.
	writeFile(t, dir, "warp_points.yaml", `cameras:
  - src: [[100, 100], [700, 100], [100, 500], [700, 500]]
    dst: [[0, 0], [320, 0], [0, 400], [320, 400]]
`)

	p := &FileProvider{Dir: dir}
	_, err := p.Setup(context.Background())
	test.That(t, IsConfigError(err), test.ShouldBeTrue)
}

func TestFileProviderBadProjection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `frame_width: 1280
frame_height: 800
scale: 1.0
projection: cylindrical
cameras:
  - front
`)

	p := &FileProvider{Dir: dir}
	_, err := p.Setup(context.Background())
	test.That(t, IsConfigError(err), test.ShouldBeTrue)
}

func TestFileProviderBadIntrinsicMatrix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `frame_width: 1280
frame_height: 800
scale: 1.0
projection: planar
cameras:
  - front
`)
	writeFile(t, dir, "camparam0.yaml", `focal_length: 350
intrinsic:
  - [400, 0]
rotation:
  - [1, 0, 0]
  - [0, 1, 0]
  - [0, 0, 1]
`)

	p := &FileProvider{Dir: dir}
	_, err := p.Setup(context.Background())
	test.That(t, IsConfigError(err), test.ShouldBeTrue)
}

func TestFileProviderBadCrop(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", manualConfigYAML)
	writeFile(t, dir, "warp_points.yaml", warpPointsYAML)
	writeFile(t, dir, "crop.yaml", `output: [1920]
tl: [10, 20]
tr: [630, 20]
bl: [10, 380]
br: [630, 380]
`)

	p := &FileProvider{Dir: dir}
	_, err := p.Setup(context.Background())
	test.That(t, IsConfigError(err), test.ShouldBeTrue)
}

func TestStaticProviderValidates(t *testing.T) {
	p := &StaticProvider{S: &Setup{}}
	_, err := p.Setup(context.Background())
	test.That(t, IsConfigError(err), test.ShouldBeTrue)

	square := [4]r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}}
	good := &Setup{
		FrameSize:  image.Point{X: 100, Y: 100},
		Scale:      1.0,
		Strategies: []transform.WarpStrategy{&transform.ManualHomography{Src: square, Dst: square, Scale: 1.0}},
	}
	setup, err := (&StaticProvider{S: good}).Setup(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, setup, test.ShouldEqual, good)
}

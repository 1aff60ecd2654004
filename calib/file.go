package calib

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/GKT-github/Ethsimple-nostitch/svimage/transform"
)

// rawConfig is the top-level config.yaml of a calibration folder.
type rawConfig struct {
	FrameWidth         int      `yaml:"frame_width"`
	FrameHeight        int      `yaml:"frame_height"`
	Scale              float64  `yaml:"scale"`
	Projection         string   `yaml:"projection"`
	FadeDistance       float64  `yaml:"fade_distance"`
	GainUpdateInterval int      `yaml:"gain_update_interval"`
	Cameras            []string `yaml:"cameras"`
}

// rawCamParam is one per-camera camparam%d.yaml for intrinsic-mode warping.
type rawCamParam struct {
	FocalLength float64     `yaml:"focal_length"`
	Intrinsic   [][]float64 `yaml:"intrinsic"`
	Rotation    [][]float64 `yaml:"rotation"`
}

// rawWarpPoints is warp_points.yaml for manual-homography warping.
type rawWarpPoints struct {
	Cameras []struct {
		Src [][]float64 `yaml:"src"`
		Dst [][]float64 `yaml:"dst"`
	} `yaml:"cameras"`
}

// rawCrop is the optional crop.yaml.
type rawCrop struct {
	Output []int     `yaml:"output"`
	TL     []float64 `yaml:"tl"`
	TR     []float64 `yaml:"tr"`
	BL     []float64 `yaml:"bl"`
	BR     []float64 `yaml:"br"`
}

// projectionManual selects manual 4-point homography calibration instead of
// an intrinsic projection model.
const projectionManual = "homography"

// FileProvider reads a calibration folder: config.yaml, then either
// camparam0.yaml..camparamN.yaml (intrinsic mode) or warp_points.yaml
// (manual mode), plus an optional crop.yaml.
type FileProvider struct {
	Dir string
}

// Setup implements Provider.
func (p *FileProvider) Setup(_ context.Context) (*Setup, error) {
	var cfg rawConfig
	if err := readYAML(filepath.Join(p.Dir, "config.yaml"), &cfg); err != nil {
		return nil, NewConfigError("loading calibration config: %v", err)
	}
	if len(cfg.Cameras) == 0 {
		return nil, NewConfigError("calibration config lists no cameras")
	}

	setup := &Setup{
		FrameSize:          image.Point{X: cfg.FrameWidth, Y: cfg.FrameHeight},
		Scale:              cfg.Scale,
		FadeDistance:       cfg.FadeDistance,
		GainUpdateInterval: cfg.GainUpdateInterval,
		Names:              cfg.Cameras,
	}

	var err error
	if cfg.Projection == projectionManual {
		setup.Strategies, err = p.manualStrategies(len(cfg.Cameras), cfg.Scale)
	} else {
		setup.Strategies, err = p.intrinsicStrategies(cfg)
	}
	if err != nil {
		return nil, err
	}

	setup.Crop, err = p.crop()
	if err != nil {
		return nil, err
	}

	if err := setup.Validate(); err != nil {
		return nil, err
	}
	return setup, nil
}

func (p *FileProvider) intrinsicStrategies(cfg rawConfig) ([]transform.WarpStrategy, error) {
	kind, err := transform.ParseProjectionKind(cfg.Projection)
	if err != nil {
		return nil, NewConfigError("calibration config: %v", err)
	}
	strategies := make([]transform.WarpStrategy, len(cfg.Cameras))
	for i := range cfg.Cameras {
		fn := filepath.Join(p.Dir, fmt.Sprintf("camparam%d.yaml", i))
		var raw rawCamParam
		if err := readYAML(fn, &raw); err != nil {
			return nil, NewConfigError("loading %s: %v", fn, err)
		}
		intrinsics, err := intrinsicsFromMatrix(raw.Intrinsic, cfg.FrameWidth, cfg.FrameHeight)
		if err != nil {
			return nil, NewConfigError("%s: %v", fn, err)
		}
		rotation, err := rotationFromMatrix(raw.Rotation)
		if err != nil {
			return nil, NewConfigError("%s: %v", fn, err)
		}
		if raw.FocalLength <= 0 {
			return nil, NewConfigError("%s: focal_length must be positive, got %f", fn, raw.FocalLength)
		}
		strategies[i] = &transform.IntrinsicProjection{
			Kind:       kind,
			Intrinsics: intrinsics,
			Rotation:   rotation,
			Focal:      raw.FocalLength,
			Scale:      cfg.Scale,
		}
	}
	return strategies, nil
}

func (p *FileProvider) manualStrategies(numCameras int, scale float64) ([]transform.WarpStrategy, error) {
	fn := filepath.Join(p.Dir, "warp_points.yaml")
	var raw rawWarpPoints
	if err := readYAML(fn, &raw); err != nil {
		return nil, NewConfigError("loading %s: %v", fn, err)
	}
	if len(raw.Cameras) != numCameras {
		return nil, NewConfigError("%s has %d cameras, config lists %d", fn, len(raw.Cameras), numCameras)
	}
	strategies := make([]transform.WarpStrategy, numCameras)
	for i, cam := range raw.Cameras {
		src, err := fourPoints(cam.Src)
		if err != nil {
			return nil, NewConfigError("%s camera %d src: %v", fn, i, err)
		}
		dst, err := fourPoints(cam.Dst)
		if err != nil {
			return nil, NewConfigError("%s camera %d dst: %v", fn, i, err)
		}
		strategies[i] = &transform.ManualHomography{Src: src, Dst: dst, Scale: scale}
	}
	return strategies, nil
}

// crop loads crop.yaml. A missing file is not an error: the pipeline falls
// back to a plain resize of the full canvas.
func (p *FileProvider) crop() (*Crop, error) {
	fn := filepath.Join(p.Dir, "crop.yaml")
	if _, err := os.Stat(fn); os.IsNotExist(err) {
		return nil, nil
	}
	var raw rawCrop
	if err := readYAML(fn, &raw); err != nil {
		return nil, NewConfigError("loading %s: %v", fn, err)
	}
	if len(raw.Output) != 2 {
		return nil, NewConfigError("%s: output must be [width, height]", fn)
	}
	corners := [4][]float64{raw.TL, raw.TR, raw.BL, raw.BR}
	var pts [4]r2.Point
	for i, c := range corners {
		if len(c) != 2 {
			return nil, NewConfigError("%s: crop corners must be [x, y] pairs", fn)
		}
		pts[i] = r2.Point{X: c[0], Y: c[1]}
	}
	return &Crop{
		TL:     pts[0],
		TR:     pts[1],
		BL:     pts[2],
		BR:     pts[3],
		Output: image.Point{X: raw.Output[0], Y: raw.Output[1]},
	}, nil
}

func readYAML(fn string, out interface{}) error {
	contents, err := os.ReadFile(fn)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(contents, out)
}

func intrinsicsFromMatrix(m [][]float64, width, height int) (transform.CameraIntrinsics, error) {
	if err := check3x3(m); err != nil {
		return transform.CameraIntrinsics{}, errors.Wrap(err, "intrinsic")
	}
	return transform.CameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     m[0][0],
		Fy:     m[1][1],
		Ppx:    m[0][2],
		Ppy:    m[1][2],
	}, nil
}

func rotationFromMatrix(m [][]float64) (transform.Rotation, error) {
	if err := check3x3(m); err != nil {
		return transform.Rotation{}, errors.Wrap(err, "rotation")
	}
	var r transform.Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][j]
		}
	}
	return r, nil
}

func check3x3(m [][]float64) error {
	if len(m) != 3 {
		return errors.Errorf("matrix must have 3 rows, has %d", len(m))
	}
	for i, row := range m {
		if len(row) != 3 {
			return errors.Errorf("matrix row %d must have 3 columns, has %d", i, len(row))
		}
	}
	return nil
}

func fourPoints(raw [][]float64) ([4]r2.Point, error) {
	var pts [4]r2.Point
	if len(raw) != 4 {
		return pts, errors.Errorf("need 4 points, got %d", len(raw))
	}
	for i, p := range raw {
		if len(p) != 2 {
			return pts, errors.Errorf("point %d must be [x, y]", i)
		}
		pts[i] = r2.Point{X: p[0], Y: p[1]}
	}
	return pts, nil
}

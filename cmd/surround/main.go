// Package main stitches one set of per-camera frame files into a surround
// view composite. It is a thin runner around the stitch pipeline; live
// capture and on-screen rendering are separate concerns.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/edaniels/golog"

	"github.com/GKT-github/Ethsimple-nostitch/calib"
	"github.com/GKT-github/Ethsimple-nostitch/stitch"
	"github.com/GKT-github/Ethsimple-nostitch/svimage"
	"github.com/GKT-github/Ethsimple-nostitch/utils"
)

var logger = golog.NewDevelopmentLogger("surround")

func main() {
	if err := realMain(os.Args[1:]); err != nil {
		logger.Fatal(err)
	}
}

func realMain(args []string) error {
	flags := flag.NewFlagSet("surround", flag.ExitOnError)
	calibDir := flags.String("calib", "", "calibration folder (config.yaml plus camera files)")
	out := flags.String("out", "surround.png", "output composite file")
	maskViz := flags.String("maskviz", "", "write a blend-mask layout debug image to this file and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *calibDir == "" {
		return fmt.Errorf("need -calib <folder>")
	}

	ctx := context.Background()
	provider := &calib.FileProvider{Dir: *calibDir}
	setup, err := provider.Setup(ctx)
	if err != nil {
		return err
	}

	pipeline, err := stitch.NewPipeline(setup, logger)
	if err != nil {
		return err
	}

	if *maskViz != "" {
		img := stitch.RenderLayout(pipeline.Canvas(), pipeline.WarpMaps(), pipeline.Masks(), setup.Names)
		logger.Infow("writing mask layout", "file", *maskViz)
		return svimage.WriteImageToFile(*maskViz, img)
	}

	if flags.NArg() != pipeline.NumCameras() {
		return fmt.Errorf("need %d frame files, got %d", pipeline.NumCameras(), flags.NArg())
	}

	frames := make([]*svimage.Image, flags.NArg())
	loaders := make([]utils.SimpleFunc, flags.NArg())
	for i := 0; i < flags.NArg(); i++ {
		i := i
		fn := flags.Arg(i)
		loaders[i] = func(context.Context) error {
			img, err := svimage.NewImageFromFile(fn)
			if err != nil {
				return err
			}
			frames[i] = img
			return nil
		}
	}
	if err := utils.RunInParallel(ctx, loaders); err != nil {
		return err
	}

	canvas, err := pipeline.Stitch(ctx, frames)
	if err != nil {
		return err
	}
	logger.Infow("stitched", "size", canvas.Bounds().Max, "out", *out)
	return svimage.WriteImageToFile(*out, canvas)
}

// meshshot renders a 3D asset offscreen and writes the frame as a PNG.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/debug"
	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/engine/window"
	"github.com/Faultbox/meshview/internal/importer"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/scene"
	"github.com/Faultbox/meshview/internal/viewer"
	"github.com/Faultbox/meshview/pkg/grf"
)

var (
	flagOut    = flag.String("out", "meshshot.png", "Output PNG path")
	flagYaw    = flag.Float64("yaw", 30, "Orbit yaw in degrees")
	flagPitch  = flag.Float64("pitch", 20, "Orbit pitch in degrees")
	flagDist   = flag.Float64("distance", 2, "Orbit distance")
	flagShader = flag.String("shader", "", "Built-in shader (default or depth)")
	flagBounds = flag.Bool("bounds", false, "Draw the bounding box")
)

func main() {
	config.ParseFlags()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.InitConsole(cfg.Logging.Level, os.Stderr)
	defer logger.Sync()

	if cfg.Scene.Model == "" {
		fmt.Fprintln(os.Stderr, "Usage: meshshot [options] <model>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		logger.Error("snapshot failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	win, err := window.New(window.Config{
		Title:  cfg.Window.Title,
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		Hidden: true,
	})
	if err != nil {
		return err
	}
	defer win.Close()

	if err := gl.Init(); err != nil {
		return fmt.Errorf("initializing OpenGL: %w", err)
	}

	opts := scene.DefaultOptions()
	opts.FlipTextureV = cfg.Scene.FlipTextureV
	opts.Normalize = cfg.Scene.Normalize
	opts.MaxTextureSize = cfg.Scene.MaxTextureSize
	opts.Uploader = gpu.Uploader{}
	opts.Source = importer.Disk{}
	if cfg.Scene.GRFPath != "" {
		archive, err := grf.Open(cfg.Scene.GRFPath)
		if err != nil {
			return err
		}
		defer archive.Close()
		opts.Source = archive
	}

	session := viewer.NewSession(opts)
	defer session.Close()
	if err := session.Open(cfg.Scene.Model); err != nil {
		return err
	}

	settings := viewer.SettingsFromConfig(cfg.Render)
	if *flagShader != "" {
		settings.Shader = *flagShader
	}
	if *flagBounds {
		settings.ShowBounds = true
	}
	renderer, err := viewer.NewRenderer(cfg.Window.Width, cfg.Window.Height, settings)
	if err != nil {
		return err
	}
	defer renderer.Destroy()

	camCfg := cfg.Camera
	camCfg.Mode = viewer.ModeOrbit
	rig := viewer.NewRig(camCfg, cfg.Window.Width, cfg.Window.Height)
	rig.Orbit.Yaw = mgl32.DegToRad(float32(*flagYaw))
	rig.Orbit.Pitch = mgl32.DegToRad(float32(*flagPitch))
	rig.Orbit.Distance = float32(*flagDist)
	rig.Update()

	renderer.Render(session.Asset(), rig.View(), rig.Lens)
	gl.Finish()

	if err := debug.SavePNG(*flagOut, renderer.Image()); err != nil {
		return err
	}
	logger.Info("snapshot written", zap.String("path", *flagOut))
	return nil
}

package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagModel       = flag.String("model", "", "Model file to open at startup")
	flagGRF         = flag.String("grf", "", "GRF archive to read models from")
	flagWidth       = flag.Int("width", 0, "Window width")
	flagHeight      = flag.Int("height", 0, "Window height")
	flagNoNormalize = flag.Bool("no-normalize", false, "Keep the model's authored size and origin")
	flagNoFlip      = flag.Bool("no-flip", false, "Do not flip texture V coordinates")
	flagWatch       = flag.Bool("watch", false, "Reload the model when the file changes")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagModel != "" {
		cfg.Scene.Model = *flagModel
	} else if flag.NArg() > 0 {
		cfg.Scene.Model = flag.Arg(0)
	}
	if *flagGRF != "" {
		cfg.Scene.GRFPath = *flagGRF
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagNoNormalize {
		cfg.Scene.Normalize = false
	}
	if *flagNoFlip {
		cfg.Scene.FlipTextureV = false
	}
	if *flagWatch {
		cfg.Scene.Watch = true
	}
}

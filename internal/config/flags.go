package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagModel    = flag.String("model", "", "Model settings (model.json) or .moc file")
	flagWidth    = flag.Int("width", 0, "Render width")
	flagHeight   = flag.Int("height", 0, "Render height")
	flagDuration = flag.Float64("duration", -1, "Seconds to run (0 runs until interrupted)")
	flagOut      = flag.String("out", "", "Snapshot output directory")
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
		cfg.Model.Path = *flagModel
	}
	if *flagWidth > 0 {
		cfg.Render.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Render.Height = *flagHeight
	}
	if *flagDuration >= 0 {
		cfg.Runtime.Duration = *flagDuration
	}
	if *flagOut != "" {
		cfg.Render.OutputDir = *flagOut
	}
}

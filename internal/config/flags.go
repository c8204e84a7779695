package config

import (
	"flag"
	"path/filepath"
)

var (
	flagConfig = flag.String("config", "", "Path to config file")
	flagDebug  = flag.Bool("debug", false, "Enable debug logging")
	flagScript = flag.String("script", "", "Pattern script (.lua)")
	flagScene  = flag.String("scene", "", "Collision scene (.yaml)")
	flagOut    = flag.String("out", "", "Output directory for the model and motion")
	flagFrames = flag.Int("frames", 0, "Number of frames to simulate")
)

// ParseFlags parses command-line flags. Call this early in main(), after
// the subcommand has been stripped from args.
func ParseFlags(args []string) error {
	return flag.CommandLine.Parse(args)
}

// Args returns the arguments left after flag parsing.
func Args() []string {
	return flag.Args()
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
	if *flagScript != "" {
		cfg.Script.Path = *flagScript
	}
	if *flagScene != "" {
		cfg.Scene.Path = *flagScene
	}
	if *flagOut != "" {
		name := cfg.Run.ModelName
		if name == "" {
			name = "curtainfire"
		}
		cfg.Export.PMXPath = filepath.Join(*flagOut, name+".pmx")
		cfg.Export.VMDPath = filepath.Join(*flagOut, name+".vmd")
		if cfg.Export.DumpPath != "" {
			cfg.Export.DumpPath = filepath.Join(*flagOut, filepath.Base(cfg.Export.DumpPath))
		}
	}
	if *flagFrames > 0 {
		cfg.Run.EndFrame = cfg.Run.StartFrame + *flagFrames
	}
}

// Package config handles generator configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all generator settings.
type Config struct {
	Run        RunConfig        `yaml:"run"`
	Script     ScriptConfig     `yaml:"script"`
	Scene      SceneConfig      `yaml:"scene"`
	ShotTypes  ShotTypesConfig  `yaml:"shot_types"`
	Export     ExportConfig     `yaml:"export"`
	Simulation SimulationConfig `yaml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// RunConfig holds the frame range and output naming.
type RunConfig struct {
	StartFrame  int    `yaml:"start_frame"`
	EndFrame    int    `yaml:"end_frame"`
	ModelName   string `yaml:"model_name"`
	Description string `yaml:"description"`
}

// ScriptConfig holds the pattern script location.
type ScriptConfig struct {
	Path       string   `yaml:"path"`
	ModuleDirs []string `yaml:"module_dirs"` // Extra Lua require paths
}

// SceneConfig holds the static collision scene.
type SceneConfig struct {
	Path string `yaml:"path"` // Empty means no collision geometry
}

// ShotTypesConfig holds the shot-type catalog.
type ShotTypesConfig struct {
	Catalog string `yaml:"catalog"` // TOML file, merged over the built-in types
}

// ExportConfig holds output paths. Empty paths are not written.
type ExportConfig struct {
	PMXPath  string `yaml:"pmx_path"`
	VMDPath  string `yaml:"vmd_path"`
	DumpPath string `yaml:"dump_path"`
}

// SimulationConfig holds numeric tolerances and the keyframe tie rule.
type SimulationConfig struct {
	Epsilon          float32 `yaml:"epsilon"`
	CollisionEpsilon float32 `yaml:"collision_epsilon"`
	ReflectOffset    float32 `yaml:"reflect_offset"`
	KeyframeTie      string  `yaml:"keyframe_tie"` // latest or first
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			StartFrame: 0,
			EndFrame:   300,
			ModelName:  "CurtainFire",
		},
		Export: ExportConfig{
			PMXPath: "curtainfire.pmx",
			VMDPath: "curtainfire.vmd",
		},
		Simulation: SimulationConfig{
			Epsilon:          1e-5,
			CollisionEpsilon: 1e-4,
			ReflectOffset:    1e-3,
			KeyframeTie:      "latest",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks settings that would make a run meaningless.
func (c *Config) Validate() error {
	switch {
	case c.Run.EndFrame < c.Run.StartFrame:
		return fmt.Errorf("%w: end_frame %d before start_frame %d", ErrInvalidConfig, c.Run.EndFrame, c.Run.StartFrame)
	case c.Simulation.KeyframeTie != "" && c.Simulation.KeyframeTie != "latest" && c.Simulation.KeyframeTie != "first":
		return fmt.Errorf("%w: keyframe_tie %q", ErrInvalidConfig, c.Simulation.KeyframeTie)
	case c.Simulation.Epsilon < 0 || c.Simulation.CollisionEpsilon < 0:
		return fmt.Errorf("%w: negative epsilon", ErrInvalidConfig)
	}
	return nil
}

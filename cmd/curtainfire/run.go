package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/curtainfire/internal/collision"
	"github.com/Faultbox/curtainfire/internal/config"
	"github.com/Faultbox/curtainfire/internal/export"
	"github.com/Faultbox/curtainfire/internal/keyframe"
	"github.com/Faultbox/curtainfire/internal/logger"
	"github.com/Faultbox/curtainfire/internal/scene"
	"github.com/Faultbox/curtainfire/internal/scripting"
	"github.com/Faultbox/curtainfire/internal/shottype"
	"github.com/Faultbox/curtainfire/internal/sim"
)

var (
	errNoScript = errors.New("no pattern script configured (use -script or script.path)")
	// errScriptFailed marks a run whose output was written although some
	// frames reported script errors.
	errScriptFailed = errors.New("pattern script reported errors")
)

func cmdRun(args []string) int {
	// Parse CLI flags first
	if err := config.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 2
	}
	if rest := config.Args(); len(rest) > 0 {
		fmt.Fprintf(os.Stderr, "Unexpected arguments: %v\n", rest)
		return 2
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("=== CurtainFire ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := generate(ctx, cfg, logger.Log)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		if !errors.Is(err, errScriptFailed) {
			return 1
		}
	}

	fmt.Printf("Vertices: %d  Bones: %d  Morphs: %d\n", sum.Vertices, sum.Bones, sum.Morphs)
	fmt.Printf("Bone frames: %d  Morph frames: %d\n", sum.BoneFrames, sum.MorphFrames)
	if err != nil {
		return 1
	}
	return 0
}

// generate runs one script end to end: build the world, drive it, then
// aggregate and export. An interrupted run still exports what it has, and
// so does a run with script errors, which then returns errScriptFailed.
func generate(ctx context.Context, cfg *config.Config, log *zap.Logger) (export.Summary, error) {
	log = logger.OrNop(log)
	var sum export.Summary

	if cfg.Script.Path == "" {
		return sum, errNoScript
	}

	registry := shottype.NewRegistry(log.Named("shottype"))
	if cfg.ShotTypes.Catalog != "" {
		catalog, err := shottype.LoadCatalog(cfg.ShotTypes.Catalog)
		if err != nil {
			return sum, err
		}
		if err := registry.RegisterCatalog(catalog); err != nil {
			return sum, err
		}
	}

	var sc *collision.Scene
	if cfg.Scene.Path != "" {
		var err error
		if sc, err = scene.Load(cfg.Scene.Path); err != nil {
			return sum, err
		}
	}

	world, err := newWorld(cfg, registry, sc, log)
	if err != nil {
		return sum, err
	}

	engine := scripting.NewEngine(world, cfg.Script.ModuleDirs, log.Named("script"))
	defer engine.Close()

	if err := engine.LoadFile(cfg.Script.Path); err != nil {
		return sum, err
	}

	runErr := world.Run(ctx)
	if ctx.Err() != nil {
		log.Warn("run interrupted, exporting partial result", zap.Int("frame", world.Frame()))
	}
	// Run returns ctx.Err() alone when only the cancellation stopped it.
	if runErr == ctx.Err() {
		runErr = nil
	}
	if runErr != nil {
		log.Error("script errors during run, exporting partial result",
			zap.Int("frame", world.Frame()),
			zap.Error(runErr))
	}

	res, err := world.Finalize()
	if res == nil {
		return sum, err
	}
	if err != nil {
		log.Warn("some shot types were left out of the model", zap.Error(err))
	}

	hits, misses := registry.Cache().Stats()
	log.Debug("geometry cache", zap.Int("hits", hits), zap.Int("misses", misses))

	sum, err = export.Write(res, export.Options{
		PMXPath:   cfg.Export.PMXPath,
		VMDPath:   cfg.Export.VMDPath,
		DumpPath:  cfg.Export.DumpPath,
		ModelName: cfg.Run.ModelName,
		Comment:   cfg.Run.Description,
	}, log.Named("export"))
	if err != nil {
		return sum, err
	}
	if runErr != nil {
		return sum, fmt.Errorf("%w: %w", errScriptFailed, runErr)
	}
	return sum, nil
}

func newWorld(cfg *config.Config, factory *shottype.Registry, sc *collision.Scene, log *zap.Logger) (*sim.World, error) {
	tie, err := keyframe.ParseTieRule(cfg.Simulation.KeyframeTie)
	if err != nil {
		return nil, err
	}

	opts := sim.DefaultOptions()
	opts.StartFrame = cfg.Run.StartFrame
	opts.EndFrame = cfg.Run.EndFrame
	opts.TieRule = tie
	opts.Scene = sc
	opts.Factory = factory
	opts.Logger = log.Named("sim")
	if cfg.Simulation.Epsilon > 0 {
		opts.Epsilon = cfg.Simulation.Epsilon
	}
	if cfg.Simulation.CollisionEpsilon > 0 {
		opts.CollisionEpsilon = cfg.Simulation.CollisionEpsilon
	}
	if cfg.Simulation.ReflectOffset > 0 {
		opts.ReflectOffset = cfg.Simulation.ReflectOffset
	}
	return sim.NewWorld(opts)
}

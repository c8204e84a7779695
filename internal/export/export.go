package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/curtainfire/internal/sim"
	"github.com/Faultbox/curtainfire/pkg/encoding"
	"github.com/Faultbox/curtainfire/pkg/formats"
)

// ErrNoOutput is returned when Options names no output file.
var ErrNoOutput = errors.New("no output path configured")

// Options selects which files Write produces. Empty paths are skipped.
type Options struct {
	PMXPath   string
	VMDPath   string
	DumpPath  string
	ModelName string
	Comment   string
}

// Summary reports what Write produced.
type Summary struct {
	Vertices      int
	Bones         int
	Morphs        int
	BoneFrames    int
	MorphFrames   int
	DroppedFrames int
	LongNames     int
}

// Write exports res according to opts.
func Write(res *sim.Result, opts Options, log *zap.Logger) (Summary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var sum Summary
	if opts.PMXPath == "" && opts.VMDPath == "" && opts.DumpPath == "" {
		return sum, ErrNoOutput
	}
	if res == nil || res.Model == nil {
		return sum, errors.New("export: empty result")
	}

	if opts.PMXPath != "" {
		pmx := ToPMX(res.Model, opts.ModelName, opts.Comment)
		if err := ensureDir(opts.PMXPath); err != nil {
			return sum, err
		}
		if err := formats.WritePMXFile(opts.PMXPath, pmx); err != nil {
			return sum, err
		}
		sum.Vertices = len(pmx.Vertices)
		sum.Bones = len(pmx.Bones)
		sum.Morphs = len(pmx.Morphs)
		log.Info("model written",
			zap.String("path", opts.PMXPath),
			zap.Int("vertices", sum.Vertices),
			zap.Int("bones", sum.Bones),
			zap.Int("morphs", sum.Morphs))
	}

	if opts.VMDPath != "" {
		vmd, dropped := ToVMD(res.Motion, opts.ModelName)
		sum.DroppedFrames = dropped
		if dropped > 0 {
			log.Debug("dropped keyframes before frame 0", zap.Int("count", dropped))
		}
		sum.LongNames = countLongNames(vmd)
		if sum.LongNames > 0 {
			log.Warn("names exceed the VMD field and will be cut",
				zap.Int("count", sum.LongNames))
		}
		if err := ensureDir(opts.VMDPath); err != nil {
			return sum, err
		}
		if err := formats.WriteVMDFile(opts.VMDPath, vmd); err != nil {
			return sum, err
		}
		sum.BoneFrames = len(vmd.Bones)
		sum.MorphFrames = len(vmd.Morphs)
		log.Info("motion written",
			zap.String("path", opts.VMDPath),
			zap.Int("bone_frames", sum.BoneFrames),
			zap.Int("morph_frames", sum.MorphFrames))
	}

	if opts.DumpPath != "" {
		if err := ensureDir(opts.DumpPath); err != nil {
			return sum, err
		}
		if err := WriteDump(opts.DumpPath, NewDump(res, opts.ModelName)); err != nil {
			return sum, err
		}
		log.Info("dump written", zap.String("path", opts.DumpPath))
	}

	return sum, nil
}

// countLongNames counts distinct bone and morph names that do not fit the
// 15-byte Shift_JIS name field.
func countLongNames(v *formats.VMD) int {
	seen := make(map[string]bool)
	n := 0
	check := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if len(encoding.UTF8ToSJIS(name)) > formats.VMDNameSize {
			n++
		}
	}
	for _, f := range v.Bones {
		check(f.Bone)
	}
	for _, f := range v.Morphs {
		check(f.Morph)
	}
	return n
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

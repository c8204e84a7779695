package export

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Faultbox/curtainfire/internal/keyframe"
	"github.com/Faultbox/curtainfire/internal/shotmodel"
	"github.com/Faultbox/curtainfire/internal/sim"
)

// DumpVersion is bumped when the dump layout changes.
const DumpVersion = 1

// Dump is the msgpack snapshot of a finalized run.
type Dump struct {
	Version    int              `msgpack:"version"`
	ModelName  string           `msgpack:"model_name"`
	StartFrame int              `msgpack:"start_frame"`
	LastFrame  int              `msgpack:"last_frame"`
	Spawned    int              `msgpack:"spawned"`
	Deaths     int              `msgpack:"deaths"`
	Collisions int              `msgpack:"collisions"`
	Model      *shotmodel.Model `msgpack:"model"`
	Motion     keyframe.Motion  `msgpack:"motion"`
}

// NewDump snapshots res.
func NewDump(res *sim.Result, modelName string) *Dump {
	return &Dump{
		Version:    DumpVersion,
		ModelName:  modelName,
		StartFrame: res.StartFrame,
		LastFrame:  res.LastFrame,
		Spawned:    res.Spawned,
		Deaths:     res.Deaths,
		Collisions: res.Collisions,
		Model:      res.Model,
		Motion:     res.Motion,
	}
}

// WriteDump encodes d to path.
func WriteDump(path string, d *Dump) error {
	data, err := msgpack.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding dump: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing dump: %w", err)
	}
	return nil
}

// ReadDump decodes a dump written by WriteDump.
func ReadDump(path string) (*Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dump: %w", err)
	}
	var d Dump
	if err := msgpack.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding dump: %w", err)
	}
	if d.Version != DumpVersion {
		return nil, fmt.Errorf("dump version %d, want %d", d.Version, DumpVersion)
	}
	return &d, nil
}

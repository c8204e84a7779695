package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/Faultbox/curtainfire/internal/config"
	"github.com/Faultbox/curtainfire/internal/export"
	"github.com/Faultbox/curtainfire/internal/keyframe"
	"github.com/Faultbox/curtainfire/internal/shottype"
)

func cmdTypes(args []string) {
	fs := flag.NewFlagSet("types", flag.ExitOnError)
	catalog := fs.String("catalog", "", "Shot-type catalog (.toml)")
	fs.Parse(args)

	registry := shottype.NewRegistry(nil)
	if *catalog != "" {
		c, err := shottype.LoadCatalog(*catalog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := registry.RegisterCatalog(c); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSHAPE\tSIZE\tDESCRIPTION")
	for _, name := range registry.Names() {
		t, _ := registry.Lookup(name)
		fmt.Fprintf(tw, "%s\t%s\t%g\t%s\n", t.Name, t.Shape, t.Size, t.Description)
	}
	tw.Flush()
}

func cmdInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	at := fs.Int("at", -1, "Sample the busiest bones at this frame")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: curtainfire inspect [-at frame] <dump.msgpack>")
		os.Exit(1)
	}

	d, err := export.ReadDump(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Model:      %s\n", d.ModelName)
	fmt.Printf("Frames:     %d..%d\n", d.StartFrame, d.LastFrame)
	fmt.Printf("Spawned:    %d\n", d.Spawned)
	fmt.Printf("Deaths:     %d\n", d.Deaths)
	fmt.Printf("Collisions: %d\n", d.Collisions)
	if d.Model != nil {
		lo, hi := d.Model.Bounds()
		fmt.Printf("Vertices:   %d\n", len(d.Model.Vertices))
		fmt.Printf("Bones:      %d\n", len(d.Model.Bones))
		fmt.Printf("Materials:  %d\n", len(d.Model.Materials))
		fmt.Printf("Bounds:     %v .. %v\n", lo, hi)
	}
	fmt.Printf("Keyframes:  %d bone, %d morph\n", len(d.Motion.Bones), len(d.Motion.Morphs))

	perBone := make(map[string][]keyframe.BoneFrame)
	for _, f := range d.Motion.Bones {
		perBone[f.Bone] = append(perBone[f.Bone], f)
	}
	type boneStat struct {
		name  string
		count int
	}
	var stats []boneStat
	for name, frames := range perBone {
		stats = append(stats, boneStat{name, len(frames)})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].name < stats[j].name
	})
	if len(stats) > 10 {
		stats = stats[:10]
	}
	if len(stats) > 0 {
		fmt.Println()
		fmt.Println("Busiest bones:")
		for _, s := range stats {
			fmt.Printf("  %-16s %d\n", s.name, s.count)
		}
	}

	if *at < 0 {
		return
	}
	fmt.Printf("\nPoses at frame %d:\n", *at)
	for _, s := range stats {
		pos, _, err := keyframe.SampleBone(perBone[s.name], float32(*at))
		if err != nil {
			fmt.Printf("  %-16s error: %v\n", s.name, err)
			continue
		}
		fmt.Printf("  %-16s (%.3f, %.3f, %.3f)\n", s.name, pos.X, pos.Y, pos.Z)
	}

	perMorph := make(map[string][]keyframe.MorphFrame)
	var morphs []string
	for _, f := range d.Motion.Morphs {
		if _, ok := perMorph[f.Morph]; !ok {
			morphs = append(morphs, f.Morph)
		}
		perMorph[f.Morph] = append(perMorph[f.Morph], f)
	}
	hidden := 0
	for _, name := range morphs {
		if keyframe.SampleMorph(perMorph[name], float32(*at)) >= 0.5 {
			hidden++
		}
	}
	fmt.Printf("Morphs at or above 0.5: %d of %d\n", hidden, len(morphs))
}

func cmdInit(args []string) {
	cfg := config.Default()
	var (
		path string
		err  error
	)
	if len(args) > 0 {
		path = args[0]
		err = cfg.Create(path)
	} else {
		path, err = cfg.Save()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

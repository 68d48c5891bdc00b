// Package config loads benchmark profiles for reactor-bench.
//
// Profiles describe a graph shape and a write workload. They live in a
// YAML file so suites can be versioned alongside the code they measure.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Shape names a graph topology the bench runner knows how to build.
type Shape string

const (
	// ShapeChain is a linear pipeline: each computed reads the previous.
	ShapeChain Shape = "chain"

	// ShapeDiamond is repeated fan-out/fan-in: every level reads two
	// branches of the level above.
	ShapeDiamond Shape = "diamond"

	// ShapeFanout is one source read by many independent computeds.
	ShapeFanout Shape = "fanout"
)

const (
	// DefaultFileName is the profile file reactor-bench looks for.
	DefaultFileName = "reactor-bench.yaml"

	// DefaultWrites is the write count when a profile omits it.
	DefaultWrites = 10000

	// DefaultObservers is the observer count when a profile omits it.
	DefaultObservers = 1
)

// Profile is one benchmark workload.
type Profile struct {
	// Name identifies the profile on the command line.
	Name string `yaml:"name"`

	// Shape selects the graph topology.
	Shape Shape `yaml:"shape"`

	// Depth is the number of computed levels (chain, diamond).
	Depth int `yaml:"depth,omitempty"`

	// Width is the fan-out per level (diamond, fanout).
	Width int `yaml:"width,omitempty"`

	// Writes is the number of source writes to drive through the graph.
	Writes int `yaml:"writes,omitempty"`

	// Observers is the number of observers attached to the graph's
	// leaves. Defaults to DefaultObservers when omitted.
	Observers int `yaml:"observers,omitempty"`

	// Batch groups all writes of one iteration into a single pass.
	Batch bool `yaml:"batch,omitempty"`
}

// File is the top-level profile document.
type File struct {
	Profiles []Profile `yaml:"profiles"`
}

// Default returns the built-in profile suite used when no file is given.
func Default() *File {
	return &File{
		Profiles: []Profile{
			{Name: "chain", Shape: ShapeChain, Depth: 100, Writes: DefaultWrites, Observers: 1},
			{Name: "diamond", Shape: ShapeDiamond, Depth: 10, Width: 2, Writes: DefaultWrites, Observers: 1},
			{Name: "fanout", Shape: ShapeFanout, Width: 1000, Writes: 1000, Observers: 10},
			{Name: "fanout-batched", Shape: ShapeFanout, Width: 1000, Writes: 1000, Observers: 10, Batch: true},
		},
	}
}

// Load reads a profile file from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Find returns the profile with the given name.
func (f *File) Find(name string) (*Profile, error) {
	for i := range f.Profiles {
		if f.Profiles[i].Name == name {
			return &f.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("unknown profile %q (have %v)", name, f.names())
}

func (f *File) names() []string {
	out := make([]string, len(f.Profiles))
	for i, p := range f.Profiles {
		out[i] = p.Name
	}
	return out
}

// applyDefaults fills in default values for empty fields.
func (f *File) applyDefaults() {
	for i := range f.Profiles {
		p := &f.Profiles[i]
		if p.Writes == 0 {
			p.Writes = DefaultWrites
		}
		if p.Observers == 0 && p.Shape != "" {
			p.Observers = DefaultObservers
		}
	}
}

// Validate checks every profile is runnable.
func (f *File) Validate() error {
	if len(f.Profiles) == 0 {
		return fmt.Errorf("profile file declares no profiles")
	}
	seen := make(map[string]bool, len(f.Profiles))
	for i := range f.Profiles {
		p := &f.Profiles[i]
		if p.Name == "" {
			return fmt.Errorf("profile %d has no name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate profile name %q", p.Name)
		}
		seen[p.Name] = true

		switch p.Shape {
		case ShapeChain:
			if p.Depth < 1 {
				return fmt.Errorf("profile %q: chain needs depth >= 1", p.Name)
			}
		case ShapeDiamond:
			if p.Depth < 1 || p.Width < 2 {
				return fmt.Errorf("profile %q: diamond needs depth >= 1 and width >= 2", p.Name)
			}
		case ShapeFanout:
			if p.Width < 1 {
				return fmt.Errorf("profile %q: fanout needs width >= 1", p.Name)
			}
		default:
			return fmt.Errorf("profile %q: unknown shape %q", p.Name, p.Shape)
		}

		if p.Writes < 1 {
			return fmt.Errorf("profile %q: writes must be >= 1", p.Name)
		}
		if p.Observers < 0 {
			return fmt.Errorf("profile %q: observers must be >= 0", p.Name)
		}
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/daireb/reactor"
	"github.com/daireb/reactor/internal/config"
)

func runCmd() *cobra.Command {
	var (
		profileName string
		configPath  string
		jsonOutput  string
		shapeFlag   string
		depthFlag   int
		widthFlag   int
		writesFlag  int
		obsFlag     int
		batchFlag   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a benchmark profile",
		Long: `Run builds the profile's graph, drives writes through it, and
prints per-pass latency percentiles and recompute counts.

Without --config the built-in profile suite is used. Individual
profile fields can be overridden from the command line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				profiles = loaded
			}

			prof, err := profiles.Find(profileName)
			if err != nil {
				return err
			}

			// Command-line overrides win over the profile file.
			p := *prof
			if cmd.Flags().Changed("shape") {
				p.Shape = config.Shape(shapeFlag)
			}
			if cmd.Flags().Changed("depth") {
				p.Depth = depthFlag
			}
			if cmd.Flags().Changed("width") {
				p.Width = widthFlag
			}
			if cmd.Flags().Changed("writes") {
				p.Writes = writesFlag
			}
			if cmd.Flags().Changed("observers") {
				p.Observers = obsFlag
			}
			if cmd.Flags().Changed("batch") {
				p.Batch = batchFlag
			}
			if err := (&config.File{Profiles: []config.Profile{p}}).Validate(); err != nil {
				return err
			}

			report := runProfile(&p)
			writeSummary(os.Stderr, report)
			if jsonOutput != "" {
				return writeJSON(jsonOutput, report)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "chain", "Profile name")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Profile YAML file (default: built-in suite)")
	cmd.Flags().StringVar(&jsonOutput, "json", "", "JSON report path ('-' for stdout)")
	cmd.Flags().StringVar(&shapeFlag, "shape", "", "Override graph shape (chain|diamond|fanout)")
	cmd.Flags().IntVar(&depthFlag, "depth", 0, "Override computed levels")
	cmd.Flags().IntVar(&widthFlag, "width", 0, "Override fan-out per level")
	cmd.Flags().IntVar(&writesFlag, "writes", 0, "Override write count")
	cmd.Flags().IntVar(&obsFlag, "observers", 0, "Override observer count")
	cmd.Flags().BoolVar(&batchFlag, "batch", false, "Override batching")

	return cmd
}

// workload is a built graph ready to drive.
type workload struct {
	source *reactor.State[int]
	leaves []reactor.Source[int]
}

func buildWorkload(p *config.Profile) *workload {
	switch p.Shape {
	case config.ShapeChain:
		return buildChain(p.Depth)
	case config.ShapeDiamond:
		return buildDiamond(p.Depth, p.Width)
	case config.ShapeFanout:
		return buildFanout(p.Width)
	default:
		panic(fmt.Sprintf("unknown shape %q", p.Shape))
	}
}

func buildChain(depth int) *workload {
	source := reactor.NewState(0)
	var prev reactor.Source[int] = source
	for i := 0; i < depth; i++ {
		dep := prev
		prev = reactor.NewComputed(func() int { return dep.Get() + 1 })
	}
	return &workload{source: source, leaves: []reactor.Source[int]{prev}}
}

func buildDiamond(depth, width int) *workload {
	source := reactor.NewState(0)
	prev := []reactor.Source[int]{source}
	for level := 0; level < depth; level++ {
		next := make([]reactor.Source[int], width)
		for j := 0; j < width; j++ {
			left := prev[j%len(prev)]
			right := prev[(j+1)%len(prev)]
			next[j] = reactor.NewComputed(func() int { return left.Get() + right.Get() })
		}
		prev = next
	}
	join := prev
	sum := reactor.NewComputed(func() int {
		total := 0
		for _, c := range join {
			total += c.Get()
		}
		return total
	})
	return &workload{source: source, leaves: []reactor.Source[int]{sum}}
}

func buildFanout(width int) *workload {
	source := reactor.NewState(0)
	leaves := make([]reactor.Source[int], width)
	for i := 0; i < width; i++ {
		k := i + 1
		leaves[i] = reactor.NewComputed(func() int { return source.Get() * k })
	}
	return &workload{source: source, leaves: leaves}
}

// statsRecorder accumulates per-pass engine statistics.
type statsRecorder struct {
	passes     int
	marked     int
	recomputed int
	unchanged  int
	notified   int
	durations  []time.Duration
}

func (r *statsRecorder) PropagationBegin(sources int) {}

func (r *statsRecorder) PropagationEnd(stats reactor.PropagationStats) {
	r.passes++
	r.marked += stats.Marked
	r.recomputed += stats.Recomputed
	r.unchanged += stats.Unchanged
	r.notified += stats.Notified
	r.durations = append(r.durations, stats.Duration)
}

// batchSize groups writes per pass when a profile asks for batching.
const batchSize = 100

func runProfile(p *config.Profile) *benchReport {
	w := buildWorkload(p)

	var fired int
	for i := 0; i < p.Observers; i++ {
		leaf := w.leaves[i%len(w.leaves)]
		reactor.Subscribe(leaf, func(int) { fired++ })
	}

	rec := &statsRecorder{}
	reactor.SetMonitor(rec)
	defer reactor.SetMonitor(nil)

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	start := time.Now()
	if p.Batch {
		for done := 0; done < p.Writes; {
			n := batchSize
			if remaining := p.Writes - done; remaining < n {
				n = remaining
			}
			base := done
			reactor.Batch(func() {
				for j := 0; j < n; j++ {
					w.source.Set(base + j + 1)
				}
			})
			done += n
		}
	} else {
		for i := 0; i < p.Writes; i++ {
			w.source.Set(i + 1)
		}
	}
	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)

	sort.Slice(rec.durations, func(i, j int) bool { return rec.durations[i] < rec.durations[j] })

	return buildReport(p, elapsed, rec, fired, before, after)
}

type benchReport struct {
	Version  string       `json:"version"`
	Run      runInfo      `json:"run"`
	Workload workloadInfo `json:"workload"`
	Passes   passInfo     `json:"passes"`
	Latency  latencyInfo  `json:"pass_latency_us"`
	GC       gcInfo       `json:"gc"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
}

type workloadInfo struct {
	Profile   string `json:"profile"`
	Shape     string `json:"shape"`
	Depth     int    `json:"depth,omitempty"`
	Width     int    `json:"width,omitempty"`
	Writes    int    `json:"writes"`
	Observers int    `json:"observers"`
	Batch     bool   `json:"batch"`
}

type passInfo struct {
	Total        int     `json:"total"`
	PerSec       float64 `json:"per_sec"`
	Marked       int     `json:"marked_total"`
	Recomputed   int     `json:"recomputed_total"`
	Unchanged    int     `json:"unchanged_total"`
	Notified     int     `json:"notified_total"`
	CallbackRuns int     `json:"callback_runs"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type gcInfo struct {
	AllocMB float64 `json:"alloc_mb"`
	NumGC   uint32  `json:"num_gc"`
}

func buildReport(
	p *config.Profile,
	elapsed time.Duration,
	rec *statsRecorder,
	fired int,
	before, after runtime.MemStats,
) *benchReport {
	elapsedSeconds := math.Max(0.001, elapsed.Seconds())

	latency := latencyInfo{}
	if len(rec.durations) > 0 {
		latency = latencyInfo{
			Min: us(rec.durations[0]),
			P50: us(percentile(rec.durations, 0.50)),
			P95: us(percentile(rec.durations, 0.95)),
			P99: us(percentile(rec.durations, 0.99)),
			Max: us(rec.durations[len(rec.durations)-1]),
		}
	}

	return &benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
		},
		Workload: workloadInfo{
			Profile:   p.Name,
			Shape:     string(p.Shape),
			Depth:     p.Depth,
			Width:     p.Width,
			Writes:    p.Writes,
			Observers: p.Observers,
			Batch:     p.Batch,
		},
		Passes: passInfo{
			Total:        rec.passes,
			PerSec:       float64(rec.passes) / elapsedSeconds,
			Marked:       rec.marked,
			Recomputed:   rec.recomputed,
			Unchanged:    rec.unchanged,
			Notified:     rec.notified,
			CallbackRuns: fired,
		},
		Latency: latency,
		GC: gcInfo{
			AllocMB: float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			NumGC:   after.NumGC - before.NumGC,
		},
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func us(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

func writeSummary(w io.Writer, report *benchReport) {
	fmt.Fprintln(w, "=== Reactor Benchmark ===")
	fmt.Fprintf(w, "Profile: %s (%s)\n", report.Workload.Profile, report.Workload.Shape)
	if report.Workload.Depth > 0 {
		fmt.Fprintf(w, "Depth: %d\n", report.Workload.Depth)
	}
	if report.Workload.Width > 0 {
		fmt.Fprintf(w, "Width: %d\n", report.Workload.Width)
	}
	fmt.Fprintf(w, "Writes: %d\n", report.Workload.Writes)
	fmt.Fprintf(w, "Observers: %d\n", report.Workload.Observers)
	fmt.Fprintf(w, "Batched: %v\n", report.Workload.Batch)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Passes: %d (%.1f/s)\n", report.Passes.Total, report.Passes.PerSec)
	fmt.Fprintf(w, "Marked: %d  Recomputed: %d  Unchanged: %d\n",
		report.Passes.Marked, report.Passes.Recomputed, report.Passes.Unchanged)
	fmt.Fprintf(w, "Notified: %d  Callback runs: %d\n", report.Passes.Notified, report.Passes.CallbackRuns)
	fmt.Fprintln(w)

	if report.Latency.Max == 0 {
		fmt.Fprintln(w, "No pass latency samples recorded.")
	} else {
		fmt.Fprintln(w, "Pass latency (mark -> settle -> notify):")
		fmt.Fprintf(w, "  min: %.1f us\n", report.Latency.Min)
		fmt.Fprintf(w, "  p50: %.1f us\n", report.Latency.P50)
		fmt.Fprintf(w, "  p95: %.1f us\n", report.Latency.P95)
		fmt.Fprintf(w, "  p99: %.1f us\n", report.Latency.P99)
		fmt.Fprintf(w, "  max: %.1f us\n", report.Latency.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Alloc: %.2f MB  GCs: %d\n", report.GC.AllocMB, report.GC.NumGC)
}

func writeJSON(path string, report *benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

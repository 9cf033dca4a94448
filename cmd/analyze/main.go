// Command analyze prints quick, human-readable heuristics about the arena's
// languages and presets. It shows which built-in languages are compatible with
// which topologies, then labels every preset in the configs directory with a
// fixed seed and summarizes the board it produces.
package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/game/grid"
	"github.com/wricardo/typing-arena/game/lang"
	"github.com/wricardo/typing-arena/logger"
)

// CompatRow is one language/topology pairing
type CompatRow struct {
	Lang      string
	Topology  grid.TopologyID
	Capacity  int
	Threshold int
	OK        bool
}

// Analysis summarizes one labeled preset
type Analysis struct {
	Name        string
	Topology    grid.TopologyID
	Dimensions  grid.Dimensions
	Area        int
	Players     int
	Lang        string
	Density     float64
	AvgSeqLen   float64
	MaxSeqLen   int
	HealthTiles int
}

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	rows, err := compatibility()
	if err != nil {
		fmt.Printf("Error building languages: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("=== Language compatibility ===")
	printCompatibility(os.Stdout, rows)

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		fmt.Printf("Error listing %s: %v\n", dir, err)
		os.Exit(1)
	}
	sort.Strings(files)

	for _, path := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(path))
		a, err := analyzeConfig(path)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			continue
		}
		printAnalysis(os.Stdout, a)
	}
}

// compatibility pairs every built-in language with every topology
func compatibility() ([]CompatRow, error) {
	var rows []CompatRow
	for _, id := range lang.Builtins() {
		b, err := lang.NewBuiltin(id, 1, lang.PolicyWeight, rand.New(rand.NewSource(1)))
		if err != nil {
			return nil, err
		}
		for _, tid := range grid.Topologies() {
			topo, err := grid.ImplementationFor(tid)
			if err != nil {
				return nil, err
			}
			threshold := topo.AmbiguityThreshold()
			rows = append(rows, CompatRow{
				Lang:      id,
				Topology:  tid,
				Capacity:  b.Capacity(),
				Threshold: threshold,
				OK:        lang.CheckCompatible(b, threshold) == nil,
			})
		}
	}
	return rows, nil
}

func printCompatibility(w io.Writer, rows []CompatRow) {
	fmt.Fprintf(w, "%-12s %-9s %8s %9s\n", "language", "topology", "capacity", "threshold")
	for _, r := range rows {
		mark := "✅"
		if !r.OK {
			mark = "❌"
		}
		fmt.Fprintf(w, "%-12s %-9s %8d %9d  %s\n", r.Lang, r.Topology, r.Capacity, r.Threshold, mark)
	}
}

// analyzeConfig validates a preset and labels a board from it with seed 1
func analyzeConfig(path string) (*Analysis, error) {
	cfg, err := engine.LoadGameConfig(path)
	if err != nil {
		return nil, err
	}

	m, err := engine.NewManager(cfg,
		engine.WithSeed(1),
		engine.WithScheduler(engine.NewManualScheduler()),
		engine.WithLogger(logger.Discard()))
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Name:       cfg.Name,
		Topology:   cfg.CoordSystem,
		Dimensions: cfg.Dimensions,
		Players:    cfg.PlayerCount(),
		Lang:       cfg.Lang.ID,
	}
	m.View(func(g *engine.Game) {
		a.Area = g.Grid.Area()
		total := 0
		for _, t := range g.Grid.Tiles() {
			n := len([]rune(t.Seq))
			total += n
			if n > a.MaxSeqLen {
				a.MaxSeqLen = n
			}
			if t.Health > 0 {
				a.HealthTiles++
			}
		}
		if g.Grid.Len() > 0 {
			a.AvgSeqLen = float64(total) / float64(g.Grid.Len())
		}
	})
	if a.Area > 0 {
		a.Density = float64(a.Players) / float64(a.Area)
	}
	return a, nil
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Grid: %s %s (%d tiles)\n", a.Topology, a.Dimensions, a.Area)
	fmt.Fprintf(w, "Language: %s\n", a.Lang)
	fmt.Fprintf(w, "Players: %d (%.1f%% of tiles)\n", a.Players, a.Density*100)
	fmt.Fprintf(w, "Label length: avg %.2f, max %d\n", a.AvgSeqLen, a.MaxSeqLen)
	fmt.Fprintf(w, "Health pickups: %d\n", a.HealthTiles)
	if a.MaxSeqLen > 3 {
		fmt.Fprintf(w, "⚠️  WARNING: some labels need %d keystrokes\n", a.MaxSeqLen)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/epicycle/pkg/search"
)

var (
	searchBudget  int
	searchWorkers int
	searchKeep    int
	searchModule  float64
	searchPlanets []int
	searchSun     []int
	searchInner   []int
	searchOuter   []int
	searchRing    []int
	searchOut     string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Sweep tooth-count space for buildable gear trains",
	Long: `Search enumerates (sun, inner, outer, ring, planet-count) tooth
tuples over bounded ranges, prunes with the assembly and triangle
filters, evaluates survivors through placement, phase propagation and
overlap detection, and prints the best configurations ranked by phase
agreement, ring fit and sun clearance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := search.DefaultOptions()
		opts.Tolerances = tolerances()
		opts.Budget = searchBudget
		opts.Workers = searchWorkers
		opts.Keep = searchKeep
		opts.Logger = logger()

		b := &opts.Bounds
		b.Module = searchModule
		b.PlanetCounts = searchPlanets
		var err error
		if b.SunMin, b.SunMax, err = parseRange("sun", searchSun); err != nil {
			return err
		}
		if b.InnerMin, b.InnerMax, err = parseRange("inner", searchInner); err != nil {
			return err
		}
		if b.OuterMin, b.OuterMax, err = parseRange("outer", searchOuter); err != nil {
			return err
		}
		if b.RingMin, b.RingMax, err = parseRange("ring", searchRing); err != nil {
			return err
		}

		res, err := search.Run(cmd.Context(), opts)
		if err != nil {
			return err
		}

		fmt.Printf("tested %d configurations, evaluated %d\n", res.Stats.Tested, res.Stats.Evaluated)
		for s := search.StageAssembly; s <= search.StagePassed; s++ {
			fmt.Printf("  %-10s %d\n", s, res.Stats.ByStage[s])
		}
		if len(res.Best) == 0 {
			return fmt.Errorf("no valid configuration found")
		}
		for i, c := range res.Best {
			fmt.Printf("#%d %v  variance=%.4f° ring_error=%.3fmm sun_margin=%.3fmm\n",
				i+1, c.Config, c.PhaseVariance, c.RingError, c.SunMargin)
		}

		if searchOut != "" {
			data, err := res.Best[0].Train.Document().Marshal()
			if err != nil {
				return err
			}
			if err := os.WriteFile(searchOut, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote best configuration to %s\n", searchOut)
		}
		return nil
	},
}

func parseRange(name string, r []int) (int, int, error) {
	if len(r) != 2 || r[0] > r[1] || r[0] <= 0 {
		return 0, 0, fmt.Errorf("--%s wants MIN,MAX with 0 < MIN <= MAX, got %v", name, r)
	}
	return r[0], r[1], nil
}

func init() {
	f := searchCmd.Flags()
	f.IntVar(&searchBudget, "budget", 200000, "maximum full evaluations")
	f.IntVar(&searchWorkers, "workers", 0, "sweep goroutines (0 = all CPUs)")
	f.IntVar(&searchKeep, "keep", 10, "how many top candidates to keep")
	f.Float64Var(&searchModule, "module", 2, "gear module in mm")
	f.IntSliceVar(&searchPlanets, "planets", []int{3, 6}, "planet counts to try")
	f.IntSliceVar(&searchSun, "sun", []int{12, 72}, "sun tooth range MIN,MAX")
	f.IntSliceVar(&searchInner, "inner", []int{6, 30}, "inner planet tooth range MIN,MAX")
	f.IntSliceVar(&searchOuter, "outer", []int{6, 36}, "outer planet tooth range MIN,MAX")
	f.IntSliceVar(&searchRing, "ring", []int{36, 144}, "ring tooth range MIN,MAX")
	f.StringVarP(&searchOut, "out", "o", "", "write the best train document to this file")
}

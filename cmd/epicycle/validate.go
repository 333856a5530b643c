package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/epicycle/pkg/layout"
	"github.com/chazu/epicycle/pkg/overlap"
	"github.com/chazu/epicycle/pkg/phase"
	"github.com/chazu/epicycle/pkg/train"
)

var validateCmd = &cobra.Command{
	Use:   "validate <document.json>",
	Short: "Check a gear-train document for phase and clearance problems",
	Long: `Validate resolves the document, propagates tooth phases from the
reference gear, checks phase agreement at every convergence gear,
measures tip clearances on every mesh, and verifies non-meshing gears
stay apart. Exit status is non-zero when any hard finding is present.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, err := loadTrain(args[0])
		if err != nil {
			return err
		}
		tol := tolerances()
		report := &train.Report{}

		res, err := phase.Propagate(tr)
		if err != nil {
			return err
		}
		for _, g := range tr.Gears() {
			demands := res.DemandValues(g.ID)
			if len(demands) < 2 {
				continue
			}
			a := phase.CheckAlignment(demands, g.Teeth, tol)
			status := "aligned"
			switch {
			case a.Aligned:
			case a.RegularlySpaced:
				status = "regularly spaced"
			default:
				status = "misaligned"
				report.Add(train.Finding{
					Kind:     train.PhaseMisalignment,
					Gear1:    g.ID,
					Message:  fmt.Sprintf("demands spread %.4f° over tooth period %.4f°", a.Variance, a.Period),
					Residual: a.Variance,
				})
			}
			fmt.Printf("phase %-10s %d demands, variance %.4f°/%.4f° — %s\n",
				g.ID, len(demands), a.Variance, a.Period, status)
		}

		solved := tr.WithPhases(res.Phases)
		analytic := overlap.CheckAnalytic(solved, tol)
		fmt.Printf("mesh pairs checked: %d\n", analytic.PairsChecked)
		for _, c := range analytic.Checks {
			mark := "ok"
			if c.Flagged {
				mark = "OVERLAP"
			}
			fmt.Printf("mesh %s-%s: tip distance %.3fmm, center error %.3fmm — %s\n",
				c.Gear1, c.Gear2, c.MinTipDistance, c.CenterError, mark)
		}
		report.Merge(train.Report{Findings: analytic.Findings})

		clear := layout.CheckClearances(solved, tol)
		fmt.Printf("clearance pairs checked: %d, tightest %.3fmm (%s-%s)\n",
			clear.PairsChecked, clear.MinMargin, clear.MinPair[0], clear.MinPair[1])
		report.Merge(train.Report{Findings: clear.Findings})

		for _, f := range report.Findings {
			fmt.Println(f)
		}
		if !report.OK() {
			return fmt.Errorf("%d findings", len(report.Errors()))
		}
		fmt.Println("valid")
		return nil
	},
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/epicycle/pkg/overlap"
)

var overlapOutlines string

var overlapCmd = &cobra.Command{
	Use:   "overlap <document.json>",
	Short: "Run the outline-based overlap detector on a gear train",
	Long: `Overlap renders every gear's tooth outline, decomposes the outlines
into line segments and tests each gear pair for intersecting segments
or near-zero separation. This consumes the same outline geometry a
fabrication export would, so it is the ground truth for
print-readiness. With --outlines the path data comes from an external
render instead: a JSON object mapping gear id to path strings.
Exit status is non-zero when any pair overlaps.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tol := tolerances()
		var outlines map[string][]overlap.Segment
		switch {
		case overlapOutlines != "":
			data, err := os.ReadFile(overlapOutlines)
			if err != nil {
				return err
			}
			var paths map[string][]string
			if err := json.Unmarshal(data, &paths); err != nil {
				return fmt.Errorf("parsing %s: %w", overlapOutlines, err)
			}
			if outlines, err = overlap.SegmentsFromPaths(paths); err != nil {
				return err
			}
		case len(args) == 1:
			tr, err := loadTrain(args[0])
			if err != nil {
				return err
			}
			if outlines, err = overlap.OutlineSegments(tr); err != nil {
				return err
			}
		default:
			return fmt.Errorf("pass a train document or --outlines")
		}
		rep := overlap.CheckGeometric(outlines, tol)
		fmt.Printf("gear pairs checked: %d\n", rep.PairsChecked)
		for _, p := range rep.Pairs {
			status := "clearance"
			if p.Overlap {
				status = "overlap"
			}
			fmt.Printf("%s-%s: min distance %.4fmm, intersects=%v — %s\n",
				p.Gear1, p.Gear2, p.MinDistance, p.Intersects, status)
		}
		if rep.Overlap {
			return fmt.Errorf("%d overlapping pairs", len(rep.Findings))
		}
		fmt.Println("no overlaps detected")
		return nil
	},
}

func init() {
	overlapCmd.Flags().StringVar(&overlapOutlines, "outlines", "", "JSON file of externally rendered path data, gear id to paths")
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chazu/epicycle/pkg/solver"
	"github.com/chazu/epicycle/pkg/train"
)

var (
	solverPath    string
	solverTimeout time.Duration
	solveOut      string
)

var solveCmd = &cobra.Command{
	Use:   "solve <document.json>",
	Short: "Send a document through the external constraint solver",
	Long: `Solve pipes the document to the external constraint solver and
prints the solved document with all positions numerically resolved.
The solver binary is configurable via --solver or the solver.path
config key.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, err := train.Parse(data)
		if err != nil {
			return err
		}

		path := solverPath
		if path == "" {
			path = viper.GetString("solver.path")
		}
		if path == "" {
			return fmt.Errorf("no solver configured: pass --solver or set solver.path")
		}

		c := solver.New(path, nil,
			solver.WithTimeout(solverTimeout),
			solver.WithLogger(logger()))
		solved, err := c.Solve(cmd.Context(), doc)
		if err != nil {
			return err
		}

		out, err := solved.Marshal()
		if err != nil {
			return err
		}
		if solveOut != "" {
			return os.WriteFile(solveOut, out, 0o644)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	f := solveCmd.Flags()
	f.StringVar(&solverPath, "solver", "", "path to the constraint solver binary")
	f.DurationVar(&solverTimeout, "timeout", solver.DefaultTimeout, "solver deadline")
	f.StringVarP(&solveOut, "out", "o", "", "write the solved document to this file")
}

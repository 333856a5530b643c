package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/epicycle/pkg/engine"
)

var scriptOut string

var scriptCmd = &cobra.Command{
	Use:   "script <train.lisp>",
	Short: "Evaluate a Lisp gear-train script into a document",
	Long: `Script evaluates a Lisp description of a gear train in a sandboxed
interpreter and emits the resulting JSON document. Example source:

  (parameter "m" 2.0)
  (def sun (gear "sun" :teeth 24 :module 2 :center (vec2 0 0)))
  (def p1  (gear "p1" :teeth 12 :module 2 :center (vec2 36 0)))
  (mesh sun p1)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		tr, evalErrs, err := engine.NewEngine().Evaluate(string(source))
		if err != nil {
			return err
		}
		if len(evalErrs) > 0 {
			for _, e := range evalErrs {
				fmt.Fprintln(os.Stderr, e)
			}
			return fmt.Errorf("%d script errors", len(evalErrs))
		}
		out, err := tr.Document().Marshal()
		if err != nil {
			return err
		}
		if scriptOut != "" {
			return os.WriteFile(scriptOut, out, 0o644)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	scriptCmd.Flags().StringVarP(&scriptOut, "out", "o", "", "write the document to this file")
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/validation"
)

type validateOptions struct {
	file string
}

// run checks the definition and prints its execution levels.
func (o *validateOptions) run(out io.Writer) error {
	in, err := dag.LoadInput(o.file)
	if err != nil {
		return err
	}
	g, err := validation.Input(in)
	if err != nil {
		return err
	}
	levels, err := g.Levels()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d jobs, %d routes\n", o.file, g.Len(), len(in.ConditionalRoutes))
	for i, level := range levels {
		fmt.Fprintf(out, "  level %d: %s\n", i, strings.Join(level, ", "))
	}
	return nil
}

func newCmdValidate() *cobra.Command {
	o := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a DAG definition without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "DAG definition (json or yaml)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

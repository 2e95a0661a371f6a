package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/kbukum/jobflow/bootstrap"
	"github.com/kbukum/jobflow/dag"
)

type runOptions struct {
	root   *rootOptions
	file   string
	output string
}

func (o *runOptions) addFlags(c *cobra.Command) {
	c.Flags().StringVarP(&o.file, "file", "f", "", "DAG definition (json or yaml)")
	c.Flags().StringVarP(&o.output, "output", "o", "yaml", "final snapshot format: yaml or json")
	_ = c.MarkFlagRequired("file")
}

// run drives one instance to its end in-process and prints the final
// snapshot. Failed jobs or a structural failure make the command fail.
func (o *runOptions) run(ctx context.Context, out io.Writer) error {
	if o.output != "yaml" && o.output != "json" {
		return fmt.Errorf("unsupported output %q", o.output)
	}
	in, err := dag.LoadInput(o.file)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(o.root)
	if err != nil {
		return err
	}
	// stdout carries the snapshot.
	cfg.Logging.Output = "stderr"

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	svc, err := wireEngine(app)
	if err != nil {
		return err
	}

	var final *dag.StatusSnapshot
	err = app.RunTask(ctx, func(ctx context.Context) error {
		var runErr error
		final, runErr = svc.Run(ctx, in)
		return runErr
	})
	if final != nil {
		if perr := printSnapshot(out, final, o.output); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}
	switch {
	case final.Error != "":
		return fmt.Errorf("instance %s failed: %s", final.InstanceID, final.Error)
	case len(final.Failed) > 0:
		return fmt.Errorf("instance %s finished with %d failed job(s): %v", final.InstanceID, len(final.Failed), final.Failed)
	}
	return nil
}

// printSnapshot writes snap as indented JSON, or as YAML with the same
// keys and key order.
func printSnapshot(w io.Writer, snap *dag.StatusSnapshot, format string) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if format == "json" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	clearStyle(&doc)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// clearStyle drops the flow style yaml keeps from JSON input.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

func newCmdRun(root *rootOptions) *cobra.Command {
	o := &runOptions{root: root}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one DAG to completion and print its final status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd.Context(), cmd.OutOrStdout())
		},
	}
	o.addFlags(cmd)
	return cmd
}

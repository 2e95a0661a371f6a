package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kbukum/jobflow/kafka"
	"github.com/kbukum/jobflow/logger"
)

type watchOptions struct {
	root     *rootOptions
	instance string
	group    string
}

func (o *watchOptions) addFlags(c *cobra.Command) {
	c.Flags().StringVar(&o.instance, "instance", "", "only show events for this instance id")
	c.Flags().StringVar(&o.group, "group", "", "consumer group (default: kafka.group_id, or none)")
}

// run tails snapshot events from Kafka until interrupted.
func (o *watchOptions) run(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig(o.root)
	if err != nil {
		return err
	}
	cfg.Kafka.ApplyDefaults()
	if o.group != "" {
		cfg.Kafka.GroupID = o.group
	}
	cfg.Kafka.Enabled = true
	if err := cfg.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	cfg.Logging.ApplyDefaults()
	cfg.Logging.Output = "stderr"
	log := logger.New(&cfg.Logging, serviceName).WithComponent("watch")

	r, err := kafka.NewReader(cfg.Kafka)
	if err != nil {
		return err
	}
	sub := kafka.NewSubscriber(r, log)
	defer sub.Close()

	log.Info("watching snapshot events", logger.Fields("topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers))
	return sub.Consume(ctx, func(ev kafka.SnapshotEvent) error {
		if o.instance != "" && ev.InstanceID != o.instance {
			return nil
		}
		fmt.Fprintln(out, formatEvent(ev, time.Now()))
		return nil
	})
}

// formatEvent renders one event as a single line.
func formatEvent(ev kafka.SnapshotEvent, now time.Time) string {
	line := fmt.Sprintf("%-14s %s seq=%d", humanize.RelTime(ev.Timestamp, now, "ago", "from now"), ev.InstanceID, ev.Sequence)
	snap := ev.Snapshot
	if snap == nil {
		return line + " " + ev.Type
	}
	line += fmt.Sprintf(" done=%d/%d running=%d failed=%d skipped=%d",
		len(snap.Finished), len(snap.Jobs), len(snap.Running), len(snap.Failed), len(snap.Skipped))
	switch ev.Type {
	case kafka.EventCompleted:
		line += " completed"
	case kafka.EventFailed:
		line += " error=" + snap.Error
	}
	return line
}

func newCmdWatch(root *rootOptions) *cobra.Command {
	o := &watchOptions{root: root}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Tail instance snapshots published to Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return o.run(ctx, cmd.OutOrStdout())
		},
	}
	o.addFlags(cmd)
	return cmd
}

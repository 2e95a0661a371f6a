// Command jobflow runs DAG job orchestrations, as an HTTP service or from
// a definition file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions are flags shared by every subcommand.
type rootOptions struct {
	configFile string
	envFile    string
	store      string
}

func (o *rootOptions) addFlags(c *cobra.Command) {
	c.PersistentFlags().StringVarP(&o.configFile, "config", "c", "", "config file (default: searched in ./cmd/jobflow, ./config, .)")
	c.PersistentFlags().StringVar(&o.envFile, "env-file", "", ".env file to load")
	c.PersistentFlags().StringVar(&o.store, "store", "", "override orchestrator.store (memory, redis, database)")
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Orchestrate DAGs of remote jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	o.addFlags(cmd)

	cmd.AddCommand(
		newCmdServe(o),
		newCmdRun(o),
		newCmdValidate(),
		newCmdWatch(o),
		newCmdVersion(),
	)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

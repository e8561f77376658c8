// Command addemo runs a process of the perception demo: one of its agents, the replay
// sink or the log generator.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/luno/jettison/log"
	"github.com/spf13/cobra"

	"github.com/corverroos/addemo/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(config.Default()).ExecuteContext(ctx); err != nil {
		log.Error(ctx, err)
		cancel()
		os.Exit(1)
	}
}

func newRootCmd(c config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "addemo",
		Short: "Periodic perception pipeline demo.",
		Long: `Runs a process of the perception demo. The primary agent generates camera ` +
			`images and infers scenes from them, the secondary agent replays an MCAP log ` +
			`onto a TCP sink.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(
		newAgentCmd(c, "primary", config.AgentPrimary),
		newAgentCmd(c, "secondary", config.AgentSecondary),
		newSinkCmd(c),
		newGenMcapCmd(c),
	)

	return root
}

package main

import (
	"context"
	"fmt"

	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/spf13/cobra"

	"github.com/corverroos/addemo/config"
	"github.com/corverroos/addemo/sink"
)

func newSinkCmd(c config.Config) *cobra.Command {
	addr := c.SinkAddr

	cmd := &cobra.Command{
		Use:   "sink",
		Short: "Prints the records forwarded by the replay bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			l, err := sink.Listen(ctx, addr, func(_ context.Context, payload []byte) {
				fmt.Fprintln(out, string(payload))
			})
			if err != nil {
				return err
			}
			defer l.Close()

			log.Info(ctx, "sink listening", j.MKV{"addr": l.Addr()})
			<-ctx.Done()

			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", addr, "TCP address to listen on")

	return cmd
}

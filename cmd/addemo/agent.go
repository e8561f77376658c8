package main

import (
	"context"
	"net/http"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/corverroos/addemo"
	"github.com/corverroos/addemo/agent"
	"github.com/corverroos/addemo/com"
	"github.com/corverroos/addemo/com/mem"
	"github.com/corverroos/addemo/com/natscom"
	"github.com/corverroos/addemo/config"
)

type agentOptions struct {
	Com         string
	NatsURL     string
	Period      time.Duration
	McapPath    string
	SinkAddr    string
	DialTimeout time.Duration
	MetricsAddr string
}

func newAgentCmd(c config.Config, name string, id addemo.AgentID) *cobra.Command {
	opts := agentOptions{
		Com:         "mem",
		NatsURL:     "nats://127.0.0.1:4222",
		Period:      time.Millisecond * 100,
		McapPath:    c.McapPath,
		SinkAddr:    c.SinkAddr,
		DialTimeout: c.DialTimeout,
	}

	cmd := &cobra.Command{
		Use:   name,
		Short: "Runs the " + name + " agent " + id.String(),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.McapPath = opts.McapPath
			c.SinkAddr = opts.SinkAddr
			c.DialTimeout = opts.DialTimeout
			return runAgent(cmd.Context(), c, id, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Com, "com", opts.Com, "transport backend: mem or nats")
	cmd.Flags().StringVar(&opts.NatsURL, "nats-url", opts.NatsURL, "NATS server url of the nats backend")
	cmd.Flags().DurationVar(&opts.Period, "period", opts.Period, "worker step period")
	cmd.Flags().StringVar(&opts.McapPath, "mcap", opts.McapPath, "MCAP log replayed by the bridge")
	cmd.Flags().StringVar(&opts.SinkAddr, "sink", opts.SinkAddr, "TCP address replayed records are forwarded to")
	cmd.Flags().DurationVar(&opts.DialTimeout, "dial-timeout", opts.DialTimeout, "bound of each forward to the sink")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "address to serve prometheus metrics on, disabled if empty")

	return cmd
}

func runAgent(ctx context.Context, c config.Config, id addemo.AgentID, opts agentOptions) error {
	if err := c.Validate(); err != nil {
		return errors.Wrap(err, "invalid topology")
	}

	a, err := agent.Select(c, id)
	if err != nil {
		return err
	}

	tr, closeFn, err := connect(a, c, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	if opts.MetricsAddr != "" {
		go serveMetrics(ctx, opts.MetricsAddr)
	}

	log.Info(ctx, "starting agent", j.MKV{
		"agent":          a.ID.String(),
		"com":            opts.Com,
		"bind_senders":   a.BindSenders,
		"bind_receivers": a.BindReceivers,
	})

	return agent.Run(ctx, a, tr, opts.Period)
}

// connect returns the transport of the agent. The mem backend only connects activities
// of the same process.
func connect(a agent.Agent, c config.Config, opts agentOptions) (com.Transport, func(), error) {
	switch opts.Com {
	case "mem":
		bus := mem.New()
		err := agent.DeclareTopics(bus, c.TopicDependencies(), a.Local, c.MaxAdditionalSubscribers)
		if err != nil {
			return nil, nil, err
		}
		return bus, func() {}, nil

	case "nats":
		tr, err := natscom.Connect(opts.NatsURL, "addemo-"+a.ID.String())
		if err != nil {
			return nil, nil, err
		}
		return tr, tr.Close, nil

	default:
		return nil, nil, errors.New("unknown com backend", j.KS("com", opts.Com))
	}
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		// NoReturnErr: Metrics are best effort.
		log.Error(ctx, errors.Wrap(err, "serve metrics", j.KS("addr", addr)))
	}
}

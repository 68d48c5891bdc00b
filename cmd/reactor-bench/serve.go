package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/daireb/reactor"
	"github.com/daireb/reactor/pkg/inspect"
	"github.com/daireb/reactor/pkg/telemetry"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a live demo graph with the inspector",
		Long: `Serve builds a small demo graph, drives it from a ticker, and
exposes the inspector:

  GET /nodes    JSON snapshot of watched nodes
  GET /ws       WebSocket stream of updates
  GET /metrics  Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			reactor.SetMonitor(telemetry.NewMetrics(telemetry.WithNamespace("reactor")))
			defer reactor.SetMonitor(nil)

			tick := reactor.NewState(0)
			doubled := reactor.NewComputed(func() int { return tick.Get() * 2 })
			parity := reactor.NewComputed(func() string {
				if tick.Get()%2 == 0 {
					return "even"
				}
				return "odd"
			})

			ins := inspect.New(inspect.WithLogger(logger))
			inspect.Register(ins, "tick", tick)
			inspect.Register(ins, "doubled", doubled)
			inspect.Register(ins, "parity", parity)

			srv := &http.Server{Addr: addr, Handler: ins.Handler()}
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			logger.Info("inspector listening", "addr", addr, "interval", interval)
			fmt.Fprintf(os.Stderr, "  snapshot: http://%s/nodes\n", addr)
			fmt.Fprintf(os.Stderr, "  stream:   ws://%s/ws\n", addr)
			fmt.Fprintf(os.Stderr, "  metrics:  http://%s/metrics\n", addr)

			// The graph is driven from this goroutine only; HTTP handlers
			// read snapshots through the inspector's own lock.
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case err := <-errCh:
					return err
				case <-ticker.C:
					tick.Update(func(n int) int { return n + 1 })
				}
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:6060", "Listen address")
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "Write interval")

	return cmd
}

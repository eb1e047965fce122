package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quotecall/quotecall/internal/commander"
	"github.com/quotecall/quotecall/internal/config"
	"github.com/quotecall/quotecall/internal/llm"
	"github.com/quotecall/quotecall/internal/queue"
	"github.com/quotecall/quotecall/internal/store"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Commander event consumer",
	Long: `Consumes Overseer events from NATS and maintains the cross-call
view of each procurement request: best quotes per part, call liveness,
and directives staged back into individual calls.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.NATS.URL == "" {
			return fmt.Errorf("worker requires a NATS url (set NATS_URL or nats.url)")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		kv, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		cs := store.NewCallStore(kv)

		svc, err := llm.NewClient(llm.ClientConfig{
			APIKey:           cfg.Anthropic.APIKey,
			Model:            cfg.Anthropic.Model,
			AnalysisModel:    cfg.Anthropic.AnalysisModel,
			DefaultMaxTokens: cfg.Anthropic.MaxTokens,
		})
		if err != nil {
			return fmt.Errorf("creating model client: %w", err)
		}

		nc, err := queue.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer nc.Close()

		cmdr := commander.New(svc, cs)
		return queue.NewWorker(nc, cmdr).Run(ctx)
	},
}

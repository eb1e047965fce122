package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quotecall/quotecall/internal/config"
	"github.com/quotecall/quotecall/internal/flow"
	"github.com/quotecall/quotecall/internal/llm"
	"github.com/quotecall/quotecall/internal/overseer"
	"github.com/quotecall/quotecall/internal/queue"
	"github.com/quotecall/quotecall/internal/server"
	"github.com/quotecall/quotecall/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the call turn endpoint",
	Long: `Starts the HTTP endpoint that receives supplier utterances and
returns the agent's next line. Each turn also dispatches the Overseer
pass in the background; its events are published to NATS for the
Commander worker when a broker is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
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

		var publisher overseer.EventPublisher = queue.NopPublisher{}
		if cfg.NATS.URL != "" {
			nc, err := queue.Connect(ctx, cfg.NATS.URL)
			if err != nil {
				return err
			}
			defer nc.Close()
			publisher = queue.NewPublisher(nc)
		}

		reviewer := overseer.New(svc, cs, publisher)
		orch := flow.NewOrchestrator(svc, cs, reviewer)

		return server.New(orch).ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

// openStore selects the distributed store or the in-memory fallback.
func openStore(ctx context.Context, cfg *config.Config) (store.KV, error) {
	if cfg.Redis.Addr == "" {
		log.Printf("[store] no redis address configured, using in-memory store")
		return store.NewMemoryKV(), nil
	}
	kv, err := store.NewRedisKV(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
	}
	return kv, nil
}

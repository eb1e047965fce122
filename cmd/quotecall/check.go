package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quotecall/quotecall/internal/config"
	"github.com/quotecall/quotecall/internal/queue"
	"github.com/quotecall/quotecall/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration and collaborator connectivity",
	Long: `Checks the API key, the distributed store, and the event broker so
misconfiguration shows up before the first live call does.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		key, err := config.GetAPIKey(cfg)
		if err != nil {
			printStatus("✗", "ANTHROPIC_API_KEY not set", color.FgRed)
		} else if verr := config.ValidateAPIKey(key); verr != nil {
			printStatus("⚠", fmt.Sprintf("API key looks wrong: %v", verr), color.FgYellow)
		} else {
			printStatus("✓", fmt.Sprintf("API key %s (%s)", config.MaskAPIKey(key), config.GetAPIKeySource(cfg)), color.FgGreen)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		if cfg.Redis.Addr == "" {
			printStatus("⚠", "No redis address configured; in-memory store only works single-process", color.FgYellow)
		} else if _, err := store.NewRedisKV(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			printStatus("✗", fmt.Sprintf("Redis at %s unreachable: %v", cfg.Redis.Addr, err), color.FgRed)
		} else {
			printStatus("✓", fmt.Sprintf("Redis reachable at %s", cfg.Redis.Addr), color.FgGreen)
		}

		if cfg.NATS.URL == "" {
			printStatus("⚠", "No NATS url configured; Overseer events will be dropped", color.FgYellow)
		} else if nc, err := queue.Connect(ctx, cfg.NATS.URL); err != nil {
			printStatus("✗", fmt.Sprintf("NATS at %s unreachable: %v", cfg.NATS.URL, err), color.FgRed)
		} else {
			nc.Close()
			printStatus("✓", fmt.Sprintf("NATS reachable at %s", cfg.NATS.URL), color.FgGreen)
		}

		return nil
	},
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

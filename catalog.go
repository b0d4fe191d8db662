package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yowlens/lens/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the product catalog schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}
		store, err := storage.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer store.Close()

		if err := store.Migrate(ctx, cfg.Database.Dimension); err != nil {
			return err
		}
		logger.Info().Int("dimension", cfg.Database.Dimension).Msg("catalog schema ready")
		return nil
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <products.jsonl>",
	Short: "Upsert products with precomputed embeddings into the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		products, err := storage.DecodeProducts(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		for _, p := range products {
			if len(p.Embedding) != cfg.Database.Dimension {
				return fmt.Errorf("product %q: embedding has %d dimensions, want %d", p.ID, len(p.Embedding), cfg.Database.Dimension)
			}
		}

		store, err := storage.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer store.Close()

		n, err := store.UpsertProducts(ctx, products, cfg.Database.BatchSize)
		if err != nil {
			return err
		}
		logger.Info().Int("products", n).Str("file", args[0]).Msg("catalog loaded")
		return nil
	},
}

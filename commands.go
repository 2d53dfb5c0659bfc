package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	envFile string
	appCfg  *Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "market-explorer",
		Short: "Stock and ETF directory backed by financialdata.net",
		Long: `Market Explorer: Stocks & ETFs Directory

Looks up stocks and ETFs by ticker or name, serves a sortable directory and
per-symbol detail (price, change, volume, dividend).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := LoadConfig(files...)
			if err != nil {
				return err
			}
			if err := InitLogger(cfg.Logging); err != nil {
				return err
			}
			appCfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default is .env)")

	root.AddCommand(
		newServeCmd(),
		newQuoteCmd(),
		newDividendsCmd(),
		newSearchCmd(),
		newNameCmd(),
		newUniverseCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				appCfg.Server.Port = port
			}

			log.Info().
				Str("db", appCfg.Database.Path).
				Str("port", appCfg.Server.Port).
				Msg("=== Market Explorer Web Server ===")

			explorer, err := NewExplorer(appCfg)
			if err != nil {
				return fmt.Errorf("failed to initialize explorer: %w", err)
			}
			defer explorer.Close()

			var scheduler *Scheduler
			if appCfg.Scheduler.Enabled {
				scheduler, err = NewScheduler(explorer, appCfg.Scheduler.Spec)
				if err != nil {
					log.Warn().Err(err).Msg("Failed to initialize scheduler")
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return NewWebServer(appCfg, explorer, scheduler).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides PORT)")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Print the quote and latest dividend for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExplorer(cmd, func(ctx context.Context, e *Explorer) error {
				detail, err := e.Detail(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), detail)
			})
		},
	}
}

func newDividendsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dividends SYMBOL",
		Short: "Print dividend history for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExplorer(cmd, func(ctx context.Context, e *Explorer) error {
				return printJSON(cmd.OutOrStdout(), e.Dividends(ctx, args[0], limit))
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultDividendLimit, "number of dividends to fetch")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		sortBy     string
		direction  string
		startsWith string
		kind       string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "search [QUERY]",
		Short: "Search the symbol universe",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := SearchOptions{
				SortBy:     SortField(sortBy),
				Direction:  SortDirection(direction),
				StartsWith: startsWith,
				Kind:       KindFilter(kind),
			}
			if len(args) == 1 {
				opts.Query = args[0]
			}
			return withExplorer(cmd, func(ctx context.Context, e *Explorer) error {
				results, err := e.Search(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), Paginate(results, 1, limit))
			})
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort-by", string(SortBySymbol), "sort field: symbol or name")
	cmd.Flags().StringVar(&direction, "direction", string(SortAsc), "sort direction: asc or desc")
	cmd.Flags().StringVar(&startsWith, "starts-with", "", "prefix on the sort field")
	cmd.Flags().StringVar(&kind, "kind", string(KindAll), "all, stock or etf")
	cmd.Flags().IntVar(&limit, "limit", 15, "maximum results to print")
	return cmd
}

func newNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "name SYMBOL",
		Short: "Resolve the display name of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExplorer(cmd, func(ctx context.Context, e *Explorer) error {
				name, found := e.Name(ctx, args[0])
				return printJSON(cmd.OutOrStdout(), NameResponse{Symbol: args[0], Name: name, Found: found})
			})
		},
	}
}

func newUniverseCmd() *cobra.Command {
	var reload bool
	cmd := &cobra.Command{
		Use:   "universe",
		Short: "Load the symbol universe and print its counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExplorer(cmd, func(ctx context.Context, e *Explorer) error {
				if reload {
					if err := e.ResetUniverse(); err != nil {
						return err
					}
				}
				if _, err := e.LoadUniverse(ctx); err != nil {
					return err
				}
				keys, err := e.StoredCacheKeys()
				if err != nil {
					log.Warn().Err(err).Msg("Failed to list stored cache keys")
				}
				return printJSON(cmd.OutOrStdout(), struct {
					UniverseStats
					StoredKeys []string `json:"storedKeys"`
				}{e.UniverseStats(), keys})
			})
		},
	}
	cmd.Flags().BoolVar(&reload, "reload", false, "drop the stored snapshot for the current key first")
	return cmd
}

func withExplorer(cmd *cobra.Command, fn func(ctx context.Context, e *Explorer) error) error {
	explorer, err := NewExplorer(appCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize explorer: %w", err)
	}
	defer explorer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, explorer)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

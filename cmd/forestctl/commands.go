package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jacentio/forest/derive"
	"github.com/jacentio/forest/metrics"
	"github.com/jacentio/forest/source"
	"github.com/jacentio/forest/store"
	"github.com/jacentio/forest/traverse"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	table          string
	index          string
	region         string
	profile        string
	consistentRead bool
	pageSize       int32
	maxDepth       int
	verbose        bool
}

// newScanClient builds the DynamoDB client. Tests replace it.
var newScanClient = func(ctx context.Context, opts *options) (dynamodb.ScanAPIClient, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.region))
	}
	if opts.profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "forestctl",
		Short:        "Inspect a parent-linked forest stored in DynamoDB",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.table, "table", "t", source.DefaultConfig().TableName, "DynamoDB table holding the records")
	flags.StringVar(&opts.index, "index", "", "Scan a secondary index instead of the base table")
	flags.StringVar(&opts.region, "region", "", "AWS region (defaults to the shared config)")
	flags.StringVar(&opts.profile, "profile", "", "AWS shared config profile")
	flags.BoolVar(&opts.consistentRead, "consistent-read", false, "Use strongly consistent reads")
	flags.Int32Var(&opts.pageSize, "page-size", 0, "Items per scan page (0 lets DynamoDB decide)")
	flags.IntVar(&opts.maxDepth, "max-depth", 0, "Cap ancestor depth at this many levels (0 is unbounded)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "tree",
			Short: "Print every record depth-first, indented by level",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := loadStore(cmd, opts)
				if err != nil {
					return err
				}
				printTree(cmd.OutOrStdout(), s)
				return nil
			},
		},
		&cobra.Command{
			Use:   "path <id>",
			Short: "Print the label path, level and category of one record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := loadStore(cmd, opts)
				if err != nil {
					return err
				}
				return printPath(cmd.OutOrStdout(), s, args[0])
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Print index statistics after a full load",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := loadStore(cmd, opts)
				if err != nil {
					return err
				}
				return printStats(cmd.OutOrStdout(), s, opts.table)
			},
		},
	)

	return rootCmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadStore scans the configured table into a fresh Store.
func loadStore(cmd *cobra.Command, opts *options) (*store.Store[string], error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.verbose)

	client, err := newScanClient(ctx, opts)
	if err != nil {
		return nil, err
	}

	loader := source.New(client, source.Config{
		TableName:      opts.table,
		IndexName:      opts.index,
		ConsistentRead: opts.consistentRead,
		PageSize:       opts.pageSize,
	}, logger)

	s := store.New[string](store.Config{
		Logger:   logger,
		MaxDepth: opts.maxDepth,
	})
	n, err := loader.Sync(ctx, s)
	if err != nil {
		return nil, err
	}
	logger.Debug("store loaded", "table", opts.table, "records", n)
	return s, nil
}

func printTree(w io.Writer, s *store.Store[string]) {
	for rec := range traverse.DepthFirst(s, s.All()) {
		indent := strings.Repeat("  ", derive.Level(s, rec))
		fmt.Fprintf(w, "%s%s [%s]\n", indent, rec.Label, rec.ID)
	}
}

func printPath(w io.Writer, s *store.Store[string], id string) error {
	rec, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	e := derive.Enrich(s, rec)
	fmt.Fprintf(w, "path:     %s\n", strings.Join(e.Path, " / "))
	fmt.Fprintf(w, "ids:      %s\n", strings.Join(e.IDPath, " / "))
	fmt.Fprintf(w, "level:    %d\n", e.Level)
	fmt.Fprintf(w, "category: %s\n", e.Category)
	return nil
}

// printStats warms every ancestor chain and prints the store's metrics as
// exported through the Prometheus collector.
func printStats(w io.Writer, s *store.Store[string], table string) error {
	for _, rec := range s.All() {
		s.AncestorIDs(rec.ID)
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewCollector(s, prometheus.Labels{"table": table})); err != nil {
		return fmt.Errorf("register collector: %w", err)
	}
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var v float64
			switch {
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			}
			fmt.Fprintf(w, "%-34s %g\n", mf.GetName(), v)
		}
	}
	return nil
}

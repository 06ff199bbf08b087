package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/uneu/ogimage/go/flags"
	"github.com/uneu/ogimage/go/og"
	"github.com/uneu/ogimage/go/store"
	"github.com/uneu/ogimage/go/store/backend"
)

// Backend settings come from the same CACHE_* environment variables the server reads.
type cacheOpts struct {
	Cache *backend.Opts `group:"Cache" namespace:"cache" env-namespace:"CACHE"`
}

func newWarmCommand(root *rootOptions) *cobra.Command {
	var (
		titlesFile  string
		parallelism int
		force       bool
		backendName string
		sqlitePath  string
	)
	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Pre-render titles into the cache",
		Long: "Renders every non-blank line of --titles-file into the configured cache so the server answers them as hits.\n" +
			"The cache backend is configured through the CACHE_* environment variables, as for the server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			titles, err := readTitles(titlesFile)
			if err != nil {
				return err
			}

			opts := &cacheOpts{}
			if err := flags.ParseArgs(opts, nil); err != nil {
				return err
			}
			if cmd.Flags().Changed("backend") {
				opts.Cache.Backend = backendName
			}
			if cmd.Flags().Changed("sqlite-path") {
				opts.Cache.SQLite.Path = sqlitePath
			}
			cache, err := backend.Open(ctx, opts.Cache, slog.Default())
			if err != nil {
				return err
			}
			defer cache.Close()

			renderer, err := root.newRenderer(cache)
			if err != nil {
				return err
			}
			stats, err := warm(ctx, renderer, cache, titles, parallelism, force)
			slog.InfoContext(ctx, "warmed cache",
				"backend", cache.Name(),
				"titles", len(titles),
				"rendered", stats.rendered.Load(),
				"skipped", stats.skipped.Load(),
				"duration", stats.duration,
			)
			return err
		},
	}
	cmd.Flags().StringVar(&titlesFile, "titles-file", "", "File with one title per line")
	cmd.Flags().IntVarP(&parallelism, "parallelism", "p", 4, "Titles rendered concurrently")
	cmd.Flags().BoolVar(&force, "force", false, "Re-render titles that are already cached")
	cmd.Flags().StringVar(&backendName, "backend", backend.SQLite, "Cache backend, overrides CACHE_BACKEND")
	cmd.Flags().StringVar(&sqlitePath, "sqlite-path", "", "SQLite cache file, overrides CACHE_SQLITE_PATH")
	cmd.MarkFlagRequired("titles-file")
	return cmd
}

type warmStats struct {
	rendered atomic.Int64
	skipped  atomic.Int64
	duration time.Duration
}

// warm renders titles with bounded parallelism and stops at the first failure.
func warm(ctx context.Context, renderer *og.Renderer, cache store.Store, titles []string, parallelism int, force bool) (*warmStats, error) {
	if parallelism < 1 {
		return &warmStats{}, fmt.Errorf("parallelism must be at least 1, got %d", parallelism)
	}
	stats := &warmStats{}
	start := time.Now()
	errGroup, groupCtx := errgroup.WithContext(ctx)
	errGroup.SetLimit(parallelism)
	for _, title := range titles {
		errGroup.Go(func() error {
			if !force {
				if _, found, err := cache.Get(groupCtx, title); err == nil && found {
					stats.skipped.Add(1)
					return nil
				}
			}
			encoded, err := renderer.Render(groupCtx, title)
			if err != nil {
				return fmt.Errorf("rendering %q: %w", title, err)
			}
			if err := cache.Put(groupCtx, title, encoded); err != nil {
				return fmt.Errorf("storing %q: %w", title, err)
			}
			stats.rendered.Add(1)
			return nil
		})
	}
	err := errGroup.Wait()
	stats.duration = time.Since(start)
	return stats, err
}

// readTitles returns the non-blank lines of path, deduplicated, in file order.
func readTitles(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening titles file: %w", err)
	}
	defer file.Close()

	var titles []string
	seen := map[string]struct{}{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		title := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(title) == "" {
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		titles = append(titles, title)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading titles file: %w", err)
	}
	return titles, nil
}

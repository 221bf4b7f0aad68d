package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"thumbcache/internal/app"
	"thumbcache/internal/logging"
	"thumbcache/internal/metrics"
	"thumbcache/internal/startup"
	"thumbcache/internal/thumbnail"
	"thumbcache/internal/workers"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type generateOptions struct {
	width    int
	height   int
	from     string
	workers  int
	failFast bool
}

// generator is the part of thumbnail.Generator a batch needs.
type generator interface {
	GetThumbnails(ctx context.Context, src string, width, height int, densities []float64) (*thumbnail.Set, error)
}

// summary counts batch results by outcome.
type summary struct {
	mu        sync.Mutex
	Cached    int
	Generated int
	Failed    int
}

func (s *summary) add(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch result {
	case "generated":
		s.Generated++
	case "cached":
		s.Cached++
	default:
		s.Failed++
	}
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate [source...]",
		Short: "Generate thumbnails for one or more sources",
		Long: `Generate thumbnails for image paths (relative to the web root or absolute)
and URLs. Sources come from the arguments and, with --from, from a file with
one source per line ("-" reads standard input). Existing fresh thumbnails are
left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := collectSources(args, opts.from, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return errors.New("no sources given")
			}

			config, err := startup.ReadConfig()
			if err != nil {
				return err
			}
			svc, err := app.Build(config)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sum, err := runBatch(ctx, svc.Generator, sources, opts, cmd.OutOrStdout())
			cmd.Printf("%d generated, %d cached, %d failed\n", sum.Generated, sum.Cached, sum.Failed)
			return err
		},
	}

	cmd.Flags().IntVarP(&opts.width, "width", "W", 0, "box width (0 derives it from the aspect ratio)")
	cmd.Flags().IntVarP(&opts.height, "height", "H", 0, "box height (0 derives it from the aspect ratio)")
	cmd.Flags().StringVar(&opts.from, "from", "", `file listing one source per line, "-" for stdin`)
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "parallel sources (env "+workers.EnvWorkers+")")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "stop at the first failed source")
	return cmd
}

// runBatch generates thumbnails for every source with a bounded number of
// workers. Without failFast every source is attempted and the returned
// error joins all failures.
func runBatch(ctx context.Context, gen generator, sources []string, opts generateOptions, out io.Writer) (*summary, error) {
	profile := workers.CPUBound
	for _, src := range sources {
		if strings.Contains(src, "://") || strings.HasPrefix(src, "//") {
			profile = workers.Mixed
			break
		}
	}
	n := workers.Resolve(opts.workers, profile, len(sources))
	logging.Info("Generating thumbnails for %d source(s) with %d worker(s)", len(sources), n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)

	sum := &summary{}
	var (
		mu   sync.Mutex
		errs []error
	)
	for _, src := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			result, err := generateOne(gctx, gen, src, opts)
			sum.add(result)
			metrics.BatchSourcesTotal.WithLabelValues(result).Inc()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Fprintf(out, "FAIL %s: %v\n", src, err)
				errs = append(errs, fmt.Errorf("%s: %w", src, err))
				if opts.failFast {
					return err
				}
				return nil
			}
			fmt.Fprintf(out, "%-9s %s\n", result, src)
			return nil
		})
	}

	if err := g.Wait(); err != nil && opts.failFast {
		return sum, err
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, errors.Join(errs...)
}

func generateOne(ctx context.Context, gen generator, src string, opts generateOptions) (string, error) {
	set, err := gen.GetThumbnails(ctx, src, opts.width, opts.height, nil)
	if err != nil {
		return "error", err
	}
	for _, v := range set.Variants {
		if v.State == thumbnail.Generated {
			return "generated", nil
		}
	}
	return "cached", nil
}

// collectSources merges argument sources with those listed in from. Blank
// lines and lines starting with # are skipped.
func collectSources(args []string, from string, stdin io.Reader) ([]string, error) {
	sources := append([]string(nil), args...)
	if from == "" {
		return sources, nil
	}

	r := stdin
	if from != "-" {
		f, err := os.Open(from)
		if err != nil {
			return nil, fmt.Errorf("reading sources: %w", err)
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sources = append(sources, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading sources: %w", err)
	}
	return sources, nil
}

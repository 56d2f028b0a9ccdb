// hioload-meta-soak drives many concurrent owners through the metadata
// registry: workers attach counters and expiring buffs, read them back,
// and randomly tear owners down, while the janitor sweeps in the
// background. At the end it prints registry metrics.
//
// Configuration precedence: defaults, then --config YAML, then
// HIOLOAD_META_* environment variables, then explicit flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-meta/api"
	"github.com/momentics/hioload-meta/control"
	"github.com/momentics/hioload-meta/facade"
	"github.com/momentics/hioload-meta/metadata"
)

var (
	hitsKey  = metadata.NewKey[*atomic.Int64]("soak.hits")
	buffKey  = metadata.NewKey[string]("soak.buff", metadata.WithRemoveOnNonExists())
	labelKey = metadata.NewKey[string]("soak.label")
)

type soakOptions struct {
	configPath     string
	owners         int
	workers        int
	duration       time.Duration
	ttl            time.Duration
	destroyPercent int

	sweepInterval  time.Duration
	clearOnDestroy bool
	logLevel       string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "hioload-meta-soak: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts soakOptions
	flagSet := pflag.NewFlagSet("hioload-meta-soak", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "path to YAML config file")
	flagSet.IntVar(&opts.owners, "owners", 64, "number of distinct owners")
	flagSet.IntVar(&opts.workers, "workers", 8, "number of concurrent workers")
	flagSet.DurationVar(&opts.duration, "duration", 5*time.Second, "how long to run")
	flagSet.DurationVar(&opts.ttl, "ttl", 100*time.Millisecond, "time-to-live of attached buffs")
	flagSet.IntVar(&opts.destroyPercent, "destroy-percent", 2, "chance per operation to destroy the owner")
	flagSet.DurationVar(&opts.sweepInterval, "sweep-interval", 0, "janitor interval (overrides config)")
	flagSet.BoolVar(&opts.clearOnDestroy, "clear-on-destroy", false, "clear all metadata on teardown (overrides config)")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	if opts.owners <= 0 || opts.workers <= 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "owners and workers must be positive")
	}

	cfg, err := control.Load(opts.configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("sweep-interval") {
		cfg.SweepInterval = opts.sweepInterval
	}
	if flagSet.Changed("clear-on-destroy") {
		cfg.ClearOnDestroy = opts.clearOnDestroy
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := control.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	h, err := facade.New(cfg, facade.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("init facade: %w", err)
	}
	if err := h.Start(); err != nil {
		return fmt.Errorf("start facade: %w", err)
	}

	var destroyed atomic.Int64
	h.Subscribe(func(ev control.Event) {
		if ev.Kind == control.OwnerDestroyed {
			destroyed.Add(1)
		}
	})

	ids := make([]string, opts.owners)
	for i := range ids {
		ids[i] = uuid.NewString()
	}

	logger.Info("soak started",
		slog.Int("owners", opts.owners),
		slog.Int("workers", opts.workers),
		slog.Duration("duration", opts.duration),
		slog.Duration("ttl", opts.ttl))

	runCtx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	var ops atomic.Int64
	g, gctx := errgroup.WithContext(runCtx)
	for w := range opts.workers {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(w), uint64(time.Now().UnixNano())))
			for gctx.Err() == nil {
				if err := step(h, ids[rng.IntN(len(ids))], opts, rng); err != nil {
					return err
				}
				ops.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = h.Shutdown()
		return err
	}

	evicted := h.Sweep()
	if err := h.Shutdown(); err != nil {
		return err
	}
	logger.Info("soak finished",
		slog.Int64("operations", ops.Load()),
		slog.Int64("owners_destroyed", destroyed.Load()),
		slog.Int("final_sweep_evicted", evicted))

	return printStats(stdout, h.GetControl().Stats())
}

// step performs one randomized round of operations against an owner.
func step(h *facade.HioloadMeta, id string, opts soakOptions, rng *rand.Rand) error {
	owner, err := h.ForOwner(id)
	if err != nil {
		return err
	}
	m := owner.Metadata()

	hits, err := metadata.GetOrPut(m, hitsKey, func() *atomic.Int64 { return new(atomic.Int64) })
	if err != nil {
		return fmt.Errorf("owner %s: %w", id, err)
	}
	hits.Add(1)

	if _, err := metadata.GetOrPutExpiring(m, buffKey, func() *metadata.Transient[string] {
		return metadata.ExpireAfter("speed", opts.ttl)
	}); err != nil && !errors.Is(err, api.ErrInvalidSupplier) {
		return fmt.Errorf("owner %s: %w", id, err)
	}

	if _, err := metadata.PutIfAbsent(m, labelKey, id[:8]); err != nil {
		return fmt.Errorf("owner %s: %w", id, err)
	}
	if _, err := metadata.GetOrError(m, labelKey); err != nil && !errors.Is(err, api.ErrNotFound) {
		return fmt.Errorf("owner %s: %w", id, err)
	}

	if rng.IntN(100) < opts.destroyPercent {
		h.Destroy(id)
	}
	return nil
}

func printStats(w io.Writer, stats map[string]any) error {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%-32s %v\n", k, stats[k]); err != nil {
			return err
		}
	}
	return nil
}

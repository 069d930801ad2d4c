// Package app holds the start-up and shut-down sequence shared by the batch
// programs: flags, config, logging, signals, metrics, result sinks and the
// span tree of the run.
package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/results"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/tracing"
)

const pushTimeout = 10 * time.Second

// Args are the positional arguments every program accepts.
type Args struct {
	Partition string
	Params    string
}

// Program describes one batch program.
type Program struct {
	Name  string
	Usage string

	// MaxArgs is the number of positional arguments accepted (partition,
	// then params).
	MaxArgs int
	Run     func(ctx context.Context, runner *pipeline.Runner, args Args, stdout io.Writer) error
}

// ParseArgs reads -config and the positional arguments.
func ParseArgs(p Program, argv []string) (string, Args, error) {
	fs := flag.NewFlagSet(p.Name, flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file (defaults apply when empty)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s %s\n", p.Name, p.Usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		return "", Args{}, apperrors.New(apperrors.ErrInvalidInput, p.Name, err.Error())
	}
	pos := fs.Args()
	if len(pos) > p.MaxArgs {
		return "", Args{}, apperrors.Newf(apperrors.ErrInvalidInput, p.Name,
			"too many arguments %q; usage: %s %s", pos, p.Name, p.Usage)
	}
	var args Args
	if len(pos) > 0 {
		args.Partition = pos[0]
	}
	if len(pos) > 1 {
		args.Params = pos[1]
	}
	return *configPath, args, nil
}

// Main runs p and returns the process exit code.
func Main(p Program, argv []string, stdout io.Writer) int {
	configPath, args, err := ParseArgs(p, argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return apperrors.ExitCode(err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return apperrors.ExitInvalidInput
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runID := tracing.NewRunID()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).With("program", p.Name, "partition", config.PartitionName(args.Partition))
	log.Info("starting", "params", args.Params, "config", configPath)

	m := metrics.New()
	sinks, err := results.Open(ctx, cfg, m)
	if err != nil {
		log.Error("failed to open result sinks", "error", err)
		return apperrors.ExitCode(err)
	}
	defer sinks.Close()
	if sinks.Len() > 0 {
		log.Info("result sinks ready", "count", sinks.Len())
	}

	if cfg.Metrics.Port > 0 {
		checker := health.NewChecker(p.Name, runID)
		sinks.RegisterChecks(checker)
		shutdown := m.StartServer(cfg.Metrics.Port, checker.Routes())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	runner := pipeline.New(cfg, m, sinks, runID)
	ctx, root := tracing.StartRun(ctx, p.Name, runID)
	start := time.Now()
	err = p.Run(ctx, runner, args, stdout)
	root.Finish(err)
	root.Log(log)
	m.ObserveStage(p.Name, start)

	pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if perr := m.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, p.Name, args.Partition); perr != nil {
		log.Warn("metrics push failed", "error", perr)
	}

	if err != nil {
		log.Error("run failed", "error", err, "exit_code", apperrors.ExitCode(err))
		return apperrors.ExitCode(err)
	}
	log.Info("finished", "seconds", time.Since(start).Round(10*time.Millisecond).Seconds())
	return apperrors.ExitOK
}

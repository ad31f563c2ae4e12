package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/Feresey/metagraph/enrich"
	"github.com/Feresey/metagraph/oracle"
	"github.com/Feresey/metagraph/render"
	"github.com/Feresey/metagraph/store"
)

type runCommand struct {
	f flags
	BaseCommand

	// закрываются в cleanup
	closers []func() error
}

func NewRunCommand(f flags) *runCommand {
	return &runCommand{f: f}
}

func (c *runCommand) Command() *cli.Command {
	return &cli.Command{
		Name:        "run",
		Usage:       "full pipeline: load, enrich, render and store",
		Description: "artifacts are written to {output}/final, snapshots to {output}/intermediate",
		Before:      c.before(c.f),
		Action:      c.run,
		After:       c.cleanup,
	}
}

func (c *runCommand) cleanup(ctx *cli.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	errs = append(errs, c.after(ctx))
	return errors.Join(errs...)
}

func (c *runCommand) run(ctx *cli.Context) error {
	runID := uuid.New()
	c.log = c.log.With(zap.Stringer("run_id", runID))
	c.log.Info("pipeline started")

	m, err := c.loadModel(ctx, c.f.debug.Get(ctx))
	if err != nil {
		return err
	}
	if err := c.dumpSnapshots(m); err != nil {
		return err
	}

	in := &render.Input{
		Graph:         m.Graph,
		Relationships: m.Relationships,
		Usage:         m.Usage,
		RelatedDepth:  c.cnf.RelatedDepth,
	}

	o, err := c.newOracle(m, runID)
	if err != nil {
		return err
	}
	if o != nil {
		if err := c.enrich(ctx.Context, o, m, in); err != nil {
			return err
		}
	} else {
		c.log.Info("oracle disabled, enrichment skipped")
	}

	renderer, err := render.NewRenderer(c.log, filepath.Join(c.cnf.OutputDir, finalDir))
	if err != nil {
		return cli.Exit(err, exitOutput)
	}
	report := renderer.Render(in)

	if err := c.save(ctx.Context, m, in.Domains); err != nil {
		return err
	}

	if err := report.Err(); err != nil {
		c.log.Warn("pipeline finished with failed artifacts",
			zap.Int("failed", len(report.Failed())),
			zap.Int("total", len(report.Results)))
		return cli.Exit(err, exitOutput)
	}
	c.log.Info("pipeline finished", zap.Int("artifacts", len(report.Results)))
	return nil
}

// newOracle builds the configured oracle with the deadline and the call journal. nil means disabled.
func (c *runCommand) newOracle(m *Model, runID uuid.UUID) (oracle.Oracle, error) {
	cnf := c.cnf.Oracle

	var o oracle.Oracle
	switch cnf.Provider {
	case ProviderNone:
		return nil, nil
	case ProviderOpenAI:
		if cnf.OpenAI.APIKey == "" {
			return nil, cli.Exit(xerrors.Errorf("%s is not set", envAPIKey), exitConfig)
		}
		o = oracle.NewOpenAI(c.log, cnf.OpenAI)
	case ProviderLua:
		script, err := os.Open(cnf.Script)
		if err != nil {
			return nil, cli.Exit(xerrors.Errorf("open oracle script: %w", err), exitConfig)
		}
		defer script.Close()

		lo, err := oracle.NewLua(c.log, m.Graph, m.Relationships, script, cnf.Script)
		if err != nil {
			return nil, cli.Exit(err, exitConfig)
		}
		c.closers = append(c.closers, func() error {
			lo.Close()
			return nil
		})
		o = lo
	default:
		return nil, cli.Exit(xerrors.Errorf("unknown oracle provider: %q", cnf.Provider), exitConfig)
	}

	journal, err := oracle.OpenJournalFile(filepath.Join(c.cnf.OutputDir, logsDir, "oracle_calls.jsonl"))
	if err != nil {
		return nil, cli.Exit(err, exitOutput)
	}
	c.closers = append(c.closers, journal.Close)

	return oracle.NewJournal(c.log, oracle.WithTimeout(o, cnf.Timeout), journal, runID), nil
}

// enrich runs both analyses. A failed analysis is logged and its artifacts fail later.
func (c *runCommand) enrich(ctx context.Context, o oracle.Oracle, m *Model, in *render.Input) error {
	enricher := enrich.NewEnricher(c.log, o)
	view := enrich.NewSchemaView(m.Graph, m.Relationships)

	domains, err := enricher.ClassifyDomains(ctx, view)
	if err != nil {
		c.log.Error("domain analysis failed",
			zap.Bool("timeout", oracle.IsTimeout(err)),
			zap.Error(err))
	} else {
		in.Domains = domains
		if err := c.dumpIntermediate("domain_analysis.json", domains); err != nil {
			return err
		}
	}

	patterns, err := enricher.AnalyzePatterns(ctx, view, in.Domains)
	if err != nil {
		c.log.Error("pattern analysis failed",
			zap.Bool("timeout", oracle.IsTimeout(err)),
			zap.Error(err))
		return nil
	}
	in.Patterns = patterns
	return c.dumpIntermediate("pattern_analysis.json", patterns)
}

func (c *runCommand) save(ctx context.Context, m *Model, domains *enrich.Classification) error {
	if c.cnf.StorePath == "" {
		return nil
	}
	s, err := store.Open(ctx, c.log, c.cnf.StorePath)
	if err != nil {
		return cli.Exit(err, exitOutput)
	}
	defer func() {
		if err := s.Close(); err != nil {
			c.log.Warn("close store", zap.Error(err))
		}
	}()

	if err := s.SaveGraph(ctx, m.Graph, m.Relationships); err != nil {
		return cli.Exit(xerrors.Errorf("save graph: %w", err), exitOutput)
	}
	if domains != nil {
		if err := s.SaveClassification(ctx, domains); err != nil {
			return cli.Exit(xerrors.Errorf("save domains: %w", err), exitOutput)
		}
	}
	return nil
}

// Package enrich asks an oracle to classify the schema into domains and to describe access patterns.
package enrich

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/Feresey/metagraph/oracle"
)

//go:generate mockery --name Oracle --inpackage --testonly --with-expecter --quiet
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Enricher struct {
	o   Oracle
	log *zap.Logger
}

func NewEnricher(log *zap.Logger, o Oracle) *Enricher {
	return &Enricher{
		o:   o,
		log: log.Named("enrich"),
	}
}

// ClassifyDomains groups tables into conceptual domains.
func (e *Enricher) ClassifyDomains(ctx context.Context, view *SchemaView) (*Classification, error) {
	e.log.Info("starting domain analysis")

	var res Classification
	if err := e.ask(ctx, DomainClassificationPrompt, view, &res); err != nil {
		return nil, xerrors.Errorf("classify domains: %w", err)
	}
	if res.TableMappings == nil {
		res.TableMappings = TableMappings{}
	}

	e.log.Info("domain analysis finished",
		zap.Int("domains", len(res.Domains)),
		zap.Int("mapped_tables", len(res.TableMappings)))
	return &res, nil
}

// AnalyzePatterns describes access patterns given the schema and its domains.
func (e *Enricher) AnalyzePatterns(
	ctx context.Context,
	view *SchemaView,
	domains *Classification,
) (*PatternAnalysis, error) {
	e.log.Info("starting pattern analysis")

	var res PatternAnalysis
	err := e.ask(ctx, RelationshipAnalysisPrompt, patternContext{
		Schema:  view,
		Domains: domains,
	}, &res)
	if err != nil {
		return nil, xerrors.Errorf("analyze patterns: %w", err)
	}

	e.log.Info("pattern analysis finished",
		zap.Int("patterns", len(res.Patterns)),
		zap.Int("hierarchies", len(res.Hierarchies)),
		zap.Int("key_paths", len(res.KeyPaths)))
	return &res, nil
}

func (e *Enricher) ask(ctx context.Context, name PromptName, view, dst any) error {
	prompt, err := Prompt(name, view)
	if err != nil {
		return err
	}

	response, err := e.o.Complete(ctx, prompt)
	if err != nil {
		e.log.Error("oracle query failed",
			zap.String("prompt", string(name)),
			zap.Bool("timeout", oracle.IsTimeout(err)),
			zap.Error(err))
		return err
	}

	if err := oracle.Decode(response, dst); err != nil {
		e.log.Error("failed to parse oracle response",
			zap.String("prompt", string(name)),
			zap.Error(err))
		return err
	}
	return nil
}

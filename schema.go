package main

import (
	"errors"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/Feresey/metagraph/parse"
	"github.com/Feresey/metagraph/parse/queries"
	"github.com/Feresey/metagraph/schema"
)

// Model is the built graph with everything derived from it.
type Model struct {
	Graph         *schema.Graph
	Relationships schema.Relationships
	Usage         schema.Usage
}

// loadModel reads metadata from the configured source, builds the graph and resolves foreign keys.
func (b *BaseCommand) loadModel(ctx *cli.Context, debug bool) (*Model, error) {
	ds, err := b.loadDataset(ctx, debug)
	if err != nil {
		return nil, err
	}

	var opts []schema.BuildOption
	if b.cnf.StrictDuplicates {
		opts = append(opts, schema.WithStrictDuplicates())
	}
	g, err := schema.Build(ds.Tables, ds.Columns, opts...)
	if err != nil {
		return nil, cli.Exit(xerrors.Errorf("build schema graph: %w", err), exitLoad)
	}
	rels, err := schema.Resolve(g)
	if err != nil {
		return nil, cli.Exit(xerrors.Errorf("resolve relationships: %w", err), exitLoad)
	}

	m := &Model{
		Graph:         g,
		Relationships: rels,
		Usage:         schema.AnalyzeUsage(g, rels, b.cnf.CentralLimit),
	}
	b.log.Info("schema processed",
		zap.Int("schemas", len(g.SchemaNames())),
		zap.Int("tables", g.Len()),
		zap.Int("central", len(m.Usage.Central)),
		zap.Int("isolated", len(m.Usage.Isolated)))
	return m, nil
}

func (b *BaseCommand) loadDataset(ctx *cli.Context, debug bool) (*parse.Dataset, error) {
	src := b.cnf.Source
	if src.DB == nil {
		b.log.Info("load schema from csv",
			zap.String("tables", src.TablesPath),
			zap.String("columns", src.ColumnsPath))
		ds, err := parse.LoadFiles(src.TablesPath, src.ColumnsPath)
		if err != nil {
			return nil, cli.Exit(xerrors.Errorf("load csv: %w", err), exitLoad)
		}
		return ds, nil
	}

	conn, err := b.connectDB(ctx, debug)
	if err != nil {
		return nil, cli.Exit(err, exitDatabase)
	}
	defer func() {
		if err := conn.Close(ctx.Context); err != nil {
			b.log.Warn("close pgx conn", zap.Error(err))
		}
	}()

	parser := parse.NewParser(conn, b.log)
	tables, columns, err := parser.LoadStreams(ctx.Context, src.Parser)
	if err != nil {
		var qErr queries.Error
		if errors.As(err, &qErr) {
			b.log.Error(qErr.Pretty())
		}
		return nil, cli.Exit(xerrors.Errorf("parse schema: %w", err), exitDatabase)
	}
	ds, err := parse.Load(tables, columns)
	if err != nil {
		return nil, cli.Exit(xerrors.Errorf("load postgres metadata: %w", err), exitLoad)
	}
	return ds, nil
}

package main

import (
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/Feresey/metagraph/schema"
)

type loadCommand struct {
	f flags
	BaseCommand
}

func NewLoadCommand(f flags) *loadCommand {
	return &loadCommand{f: f}
}

func (c *loadCommand) Command() *cli.Command {
	return &cli.Command{
		Name:        "load",
		Usage:       "load, build, resolve and analyze the schema",
		Description: "writes processed_schema_data.json and usage.json to the intermediate directory",
		Before:      c.before(c.f),
		Action:      c.run,
		After:       c.after,
	}
}

func (c *loadCommand) run(ctx *cli.Context) error {
	m, err := c.loadModel(ctx, c.f.debug.Get(ctx))
	if err != nil {
		return err
	}
	return c.dumpSnapshots(m)
}

type usageCommand struct {
	f     flags
	limit *cli.IntFlag
	BaseCommand
}

func NewUsageCommand(f flags) *usageCommand {
	return &usageCommand{
		f: f,
		limit: &cli.IntFlag{
			Name:    "limit",
			Usage:   "number of central tables, 0 keeps the configured value",
			Aliases: []string{"n"},
		},
	}
}

func (c *usageCommand) Command() *cli.Command {
	return &cli.Command{
		Name:   "usage",
		Usage:  "print central and isolated tables as JSON",
		Flags:  []cli.Flag{c.limit},
		Before: c.before(c.f),
		Action: c.run,
		After:  c.after,
	}
}

func (c *usageCommand) run(ctx *cli.Context) error {
	m, err := c.loadModel(ctx, c.f.debug.Get(ctx))
	if err != nil {
		return err
	}
	usage := m.Usage
	if limit := c.limit.Get(ctx); limit > 0 {
		usage = schema.AnalyzeUsage(m.Graph, m.Relationships, limit)
	}
	return c.print(ctx, usage)
}

type relatedCommand struct {
	f     flags
	depth *cli.IntFlag
	BaseCommand
}

func NewRelatedCommand(f flags) *relatedCommand {
	return &relatedCommand{
		f: f,
		depth: &cli.IntFlag{
			Name:    "depth",
			Usage:   "traversal depth, 0 keeps the configured value",
			Aliases: []string{"d"},
		},
	}
}

func (c *relatedCommand) Command() *cli.Command {
	return &cli.Command{
		Name:      "related",
		Usage:     "print tables reachable from a table as JSON",
		ArgsUsage: "<schema.table>",
		Flags:     []cli.Flag{c.depth},
		Before:    c.before(c.f),
		Action:    c.run,
		After:     c.after,
	}
}

func (c *relatedCommand) run(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("expected exactly one table in schema.table form", 1)
	}
	m, err := c.loadModel(ctx, c.f.debug.Get(ctx))
	if err != nil {
		return err
	}

	depth := c.cnf.RelatedDepth
	if d := c.depth.Get(ctx); d > 0 {
		depth = d
	}
	rel, err := schema.Related(m.Graph, m.Relationships, ctx.Args().First(), depth)
	if err != nil {
		return xerrors.Errorf("related tables: %w", err)
	}
	return c.print(ctx, rel)
}

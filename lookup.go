package main

import (
	"errors"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/Feresey/metagraph/store"
)

// openStore opens the configured metadata store. It is filled by the run command.
func (b *BaseCommand) openStore(ctx *cli.Context) (*store.Store, error) {
	if b.cnf.StorePath == "" {
		return nil, cli.Exit("store.path is not configured", exitConfig)
	}
	s, err := store.Open(ctx.Context, b.log, b.cnf.StorePath)
	if err != nil {
		return nil, cli.Exit(err, exitOutput)
	}
	return s, nil
}

func (b *BaseCommand) closeStore(s *store.Store) {
	if err := s.Close(); err != nil {
		b.log.Warn("close store", zap.Error(err))
	}
}

type searchCommand struct {
	f      flags
	domain *cli.StringFlag
	BaseCommand
}

func NewSearchCommand(f flags) *searchCommand {
	return &searchCommand{
		f: f,
		domain: &cli.StringFlag{
			Name:  "domain",
			Usage: "list tables of the domain instead of matching a pattern",
		},
	}
}

func (c *searchCommand) Command() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "search stored tables by name or description",
		ArgsUsage: "<pattern>",
		Flags:     []cli.Flag{c.domain},
		Before:    c.before(c.f),
		Action:    c.run,
		After:     c.after,
	}
}

func (c *searchCommand) run(ctx *cli.Context) error {
	domain := c.domain.Get(ctx)
	if domain == "" && ctx.NArg() != 1 {
		return cli.Exit("expected a search pattern or --domain", 1)
	}

	s, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer c.closeStore(s)

	if domain != "" {
		tables, err := s.DomainTables(ctx.Context, domain)
		if err != nil {
			return xerrors.Errorf("domain tables: %w", err)
		}
		return c.print(ctx, tables)
	}

	found, err := s.SearchTables(ctx.Context, ctx.Args().First())
	if err != nil {
		return xerrors.Errorf("search tables: %w", err)
	}
	return c.print(ctx, found)
}

type infoCommand struct {
	f flags
	BaseCommand
}

func NewInfoCommand(f flags) *infoCommand {
	return &infoCommand{f: f}
}

func (c *infoCommand) Command() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "show stored table info",
		ArgsUsage: "<schema.table>",
		Before:    c.before(c.f),
		Action:    c.run,
		After:     c.after,
	}
}

func (c *infoCommand) run(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("expected exactly one table in schema.table form", 1)
	}

	s, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer c.closeStore(s)

	info, err := s.TableInfo(ctx.Context, ctx.Args().First())
	if errors.Is(err, store.ErrNotFound) {
		return cli.Exit(err, 1)
	}
	if err != nil {
		return xerrors.Errorf("table info: %w", err)
	}
	return c.print(ctx, info)
}

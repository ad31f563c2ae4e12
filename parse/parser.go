package parse

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/Feresey/metagraph/parse/queries"
)

type Config struct {
	Patterns []Pattern
}

// Pattern selects tables with LIKE expressions. Empty Tables matches every table of the schema.
type Pattern struct {
	Schema string
	Tables string
}

// Parser reads table and column metadata from a live Postgres database
// and serves it as the same two streams the csv files provide.
type Parser struct {
	conn queries.Executor
	log  *zap.Logger
	q    Queries
}

//go:generate mockery --name Queries --inpackage --testonly --with-expecter --quiet
type Queries interface {
	Tables(context.Context, queries.Executor, []queries.TablesPattern) ([]queries.Table, error)
	Columns(context.Context, queries.Executor, []int) ([]queries.Column, error)
	ForeignKeys(context.Context, queries.Executor, []int) ([]queries.ForeignKey, error)
}

func NewParser(
	conn queries.Executor,
	log *zap.Logger,
) *Parser {
	return &Parser{
		log:  log.Named("parser"),
		conn: conn,
		q:    queries.Queries{},
	}
}

// LoadStreams queries the database and returns the tables and columns streams.
func (p *Parser) LoadStreams(ctx context.Context, conf Config) (tables, columns *SliceStream, err error) {
	patterns := make([]queries.TablesPattern, 0, len(conf.Patterns))
	for _, p := range conf.Patterns {
		patterns = append(patterns, queries.TablesPattern(p))
	}

	dbtables, err := p.q.Tables(ctx, p.conn, patterns)
	if err != nil {
		p.log.Error("failed to query tables", zap.Error(err))
		return nil, nil, xerrors.Errorf("load tables: %w", err)
	}
	p.log.Debug("loaded tables", zap.Int("count", len(dbtables)))

	byOID := make(map[int]queries.Table, len(dbtables))
	oids := make([]int, 0, len(dbtables))
	tableRecords := make([]Record, 0, len(dbtables))
	for _, t := range dbtables {
		byOID[t.OID] = t
		oids = append(oids, t.OID)
		tableRecords = append(tableRecords, Record{
			FieldSchemaName:       t.Schema,
			FieldTableName:        t.Table,
			FieldTableDescription: t.Description,
		})
	}

	dbcolumns, err := p.q.Columns(ctx, p.conn, oids)
	if err != nil {
		p.log.Error("failed to query columns", zap.Error(err))
		return nil, nil, xerrors.Errorf("load columns: %w", err)
	}
	fks, err := p.q.ForeignKeys(ctx, p.conn, oids)
	if err != nil {
		p.log.Error("failed to query foreign keys", zap.Error(err))
		return nil, nil, xerrors.Errorf("load foreign keys: %w", err)
	}
	p.log.Debug("loaded columns",
		zap.Int("columns", len(dbcolumns)),
		zap.Int("foreign_keys", len(fks)))

	type columnKey struct {
		oid    int
		column string
	}
	// для составных ключей берется первая пара
	refs := make(map[columnKey]queries.ForeignKey, len(fks))
	for _, fk := range fks {
		key := columnKey{fk.TableOID, fk.ColumnName}
		if _, ok := refs[key]; !ok {
			refs[key] = fk
		}
	}

	columnRecords := make([]Record, 0, len(dbcolumns))
	for _, col := range dbcolumns {
		table, ok := byOID[col.TableOID]
		if !ok {
			p.log.Warn("column of unknown table",
				zap.Int("oid", col.TableOID),
				zap.String("column", col.ColumnName))
			continue
		}
		rec := Record{
			FieldSchemaName:   table.Schema,
			FieldTableName:    table.Table,
			FieldColumnName:   col.ColumnName,
			FieldDataType:     col.DataType,
			FieldIsPrimaryKey: strconv.FormatBool(col.IsPrimaryKey),
			FieldIsForeignKey: "false",
			FieldDescription:  col.Description,
		}
		if fk, ok := refs[columnKey{col.TableOID, col.ColumnName}]; ok {
			rec[FieldIsForeignKey] = "true"
			rec[FieldReferencesSchema] = fk.ForeignSchemaName
			rec[FieldReferencesTable] = fk.ForeignTableName
			rec[FieldReferencesColumn] = fk.ForeignColumnName
		}
		columnRecords = append(columnRecords, rec)
	}

	tables = NewSliceStream("postgres:tables", TableFields, tableRecords)
	columns = NewSliceStream("postgres:columns", ColumnFields, columnRecords)
	return tables, columns, nil
}

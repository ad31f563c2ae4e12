package queries

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

type Queries struct{}

type Table struct {
	OID         int
	Schema      string
	Table       string
	Description string
}

type TablesPattern struct {
	Schema string
	Tables string
}

type queryBuiler struct {
	queries []string
	argnum  int
	args    []any
}

func (q *queryBuiler) NextArgNum() int {
	q.argnum++
	return q.argnum
}

func (q *queryBuiler) Append(query string, args ...any) {
	q.queries = append(q.queries, query)
	q.args = append(q.args, args...)
}

const queryTablesSQL = `-- list tables
SELECT
	c.oid::INT AS table_oid,
	ns.nspname AS schema_name,
	c.relname AS table_name,
	COALESCE(obj_description(c.oid, 'pg_class'), '') AS table_description
FROM
	pg_class c
	JOIN pg_namespace ns ON ns.oid = c.relnamespace
WHERE
	c.relkind IN ('r', 'p')`

// Tables lists tables matching any of the LIKE patterns, ordered by schema and name.
func (Queries) Tables(ctx context.Context, exec Executor, p []TablesPattern) ([]Table, error) {
	query := queryTablesSQL
	var qb queryBuiler
	for _, pattern := range p {
		args := []any{pattern.Schema}
		cond := fmt.Sprintf("ns.nspname LIKE $%d", qb.NextArgNum())
		if pattern.Tables != "" {
			args = append(args, pattern.Tables)
			cond = fmt.Sprintf("%s AND c.relname LIKE $%d", cond, qb.NextArgNum())
		}
		qb.Append("("+cond+")", args...)
	}
	if len(qb.queries) != 0 {
		query = fmt.Sprintf("%s AND (%s)", query, strings.Join(qb.queries, " OR "))
	}

	return QueryAll(
		ctx, exec,
		func(scan pgx.Rows, v *Table) error {
			return scan.Scan(
				&v.OID,
				&v.Schema,
				&v.Table,
				&v.Description,
			)
		},
		query+"\nORDER BY ns.nspname, c.relname",
		qb.args...)
}

//go:embed sql/columns.sql
var queryColumnsSQL string

type Column struct {
	TableOID     int
	ColumnName   string
	DataType     string
	IsPrimaryKey bool
	Description  string
}

// Columns lists columns of the tables in declaration order.
func (Queries) Columns(ctx context.Context, exec Executor, tableOIDs []int) ([]Column, error) {
	return QueryAll(
		ctx, exec,
		func(scan pgx.Rows, v *Column) error {
			return scan.Scan(
				&v.TableOID,
				&v.ColumnName,
				&v.DataType,
				&v.IsPrimaryKey,
				&v.Description,
			)
		},
		queryColumnsSQL, tableOIDs)
}

//go:embed sql/foreign_keys.sql
var queryForeignKeysSQL string

// ForeignKey is one column pair of a foreign key constraint.
type ForeignKey struct {
	TableOID          int
	ColumnName        string
	ForeignSchemaName string
	ForeignTableName  string
	ForeignColumnName string
}

func (Queries) ForeignKeys(ctx context.Context, exec Executor, tableOIDs []int) ([]ForeignKey, error) {
	return QueryAll(
		ctx, exec,
		func(scan pgx.Rows, v *ForeignKey) error {
			return scan.Scan(
				&v.TableOID,
				&v.ColumnName,
				&v.ForeignSchemaName,
				&v.ForeignTableName,
				&v.ForeignColumnName,
			)
		},
		queryForeignKeysSQL, tableOIDs)
}

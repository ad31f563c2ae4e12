// Package store keeps the processed metadata in a local sqlite file so it can be
// searched without rebuilding the graph.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/xerrors"
	_ "modernc.org/sqlite"

	"github.com/Feresey/metagraph/enrich"
	"github.com/Feresey/metagraph/schema"
)

var ErrNotFound = errors.New("table not found")

type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens or creates the database at path and applies pending migrations.
func Open(ctx context.Context, log *zap.Logger, path string) (*Store, error) {
	log = log.Named("store")

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, xerrors.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, xerrors.Errorf("open sqlite: %w", err)
	}
	// sqlite пишет только из одного соединения
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, xerrors.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(db, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Debug("store opened", zap.String("path", path))
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) tx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return xerrors.Errorf("commit: %w", err)
	}
	return nil
}

// SaveGraph replaces every stored table and column with the contents of g.
// Domains of the previous graph are dropped too; SaveClassification stores new ones.
func (s *Store) SaveGraph(ctx context.Context, g *schema.Graph, rels schema.Relationships) error {
	degrees := make(map[string]schema.Degree, g.Len())
	for _, d := range schema.Degrees(g, rels) {
		degrees[d.Table] = d
	}

	err := s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tables`); err != nil {
			return xerrors.Errorf("clear tables: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM table_domains`); err != nil {
			return xerrors.Errorf("clear table domains: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM domains`); err != nil {
			return xerrors.Errorf("clear domains: %w", err)
		}

		insertTable, err := tx.PrepareContext(ctx, `INSERT INTO tables
			(schema_name, table_name, description, outgoing, incoming)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return xerrors.Errorf("prepare tables: %w", err)
		}
		defer insertTable.Close()

		insertColumn, err := tx.PrepareContext(ctx, `INSERT INTO columns
			(schema_name, table_name, position, column_name, data_type, is_primary_key,
			 is_foreign_key, references_schema, references_table, references_column, description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return xerrors.Errorf("prepare columns: %w", err)
		}
		defer insertColumn.Close()

		for _, t := range g.Tables() {
			d := degrees[t.String()]
			_, err := insertTable.ExecContext(ctx,
				t.Name.Schema, t.Name.Name, t.Description, d.Outgoing, d.Incoming)
			if err != nil {
				return xerrors.Errorf("insert table %s: %w", t, err)
			}

			for pos, c := range t.Columns {
				var refSchema, refTable, refColumn sql.NullString
				if c.References != nil {
					refSchema = sql.NullString{String: c.References.Schema, Valid: true}
					refTable = sql.NullString{String: c.References.Table, Valid: true}
					refColumn = sql.NullString{String: c.References.Column, Valid: true}
				}
				_, err := insertColumn.ExecContext(ctx,
					t.Name.Schema, t.Name.Name, pos, c.Name, c.Type, c.IsPrimaryKey,
					c.IsForeignKey, refSchema, refTable, refColumn, c.Description)
				if err != nil {
					return xerrors.Errorf("insert column %s.%s: %w", t, c.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("graph saved", zap.Int("tables", g.Len()))
	return nil
}

// SaveClassification replaces stored domains and their table mappings.
func (s *Store) SaveClassification(ctx context.Context, c *enrich.Classification) error {
	descriptions := make(map[string]string, len(c.Domains))
	for _, d := range c.Domains {
		descriptions[d.Name] = d.Description
	}

	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM domains`); err != nil {
			return xerrors.Errorf("clear domains: %w", err)
		}
		for _, name := range c.DomainNames() {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO domains (name, description) VALUES (?, ?)`,
				name, descriptions[name])
			if err != nil {
				return xerrors.Errorf("insert domain %q: %w", name, err)
			}
			for _, table := range c.TableMappings.Tables(name) {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO table_domains (table_key, domain) VALUES (?, ?)`,
					table, name)
				if err != nil {
					return xerrors.Errorf("map %s to %q: %w", table, name, err)
				}
			}
		}
		return nil
	})
}

// TableInfo is a stored table with its columns and domains.
type TableInfo struct {
	Table       string          `json:"table"`
	Description string          `json:"description"`
	Outgoing    int             `json:"outgoing"`
	Incoming    int             `json:"incoming"`
	Columns     []schema.Column `json:"columns"`
	Domains     []string        `json:"domains"`
}

// TableInfo looks a table up by its "schema.table" key.
func (s *Store) TableInfo(ctx context.Context, key string) (*TableInfo, error) {
	info := &TableInfo{
		Table:   key,
		Columns: []schema.Column{},
		Domains: []string{},
	}
	var schemaName, tableName string
	err := s.db.QueryRowContext(ctx, `SELECT schema_name, table_name, description, outgoing, incoming
		FROM tables WHERE schema_name || '.' || table_name = ?`, key).
		Scan(&schemaName, &tableName, &info.Description, &info.Outgoing, &info.Incoming)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, xerrors.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, xerrors.Errorf("query table: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT column_name, data_type, is_primary_key, is_foreign_key,
			references_schema, references_table, references_column, description
		FROM columns WHERE schema_name = ? AND table_name = ?
		ORDER BY position`, schemaName, tableName)
	if err != nil {
		return nil, xerrors.Errorf("query columns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			c                              schema.Column
			refSchema, refTable, refColumn sql.NullString
		)
		err := rows.Scan(&c.Name, &c.Type, &c.IsPrimaryKey, &c.IsForeignKey,
			&refSchema, &refTable, &refColumn, &c.Description)
		if err != nil {
			return nil, xerrors.Errorf("scan column: %w", err)
		}
		if refSchema.Valid || refTable.Valid || refColumn.Valid {
			c.References = &schema.Reference{
				Schema: refSchema.String,
				Table:  refTable.String,
				Column: refColumn.String,
			}
		}
		info.Columns = append(info.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Errorf("read columns: %w", err)
	}

	domains, err := s.strings(ctx, `SELECT domain FROM table_domains WHERE table_key = ? ORDER BY domain`, key)
	if err != nil {
		return nil, err
	}
	info.Domains = append(info.Domains, domains...)
	return info, nil
}

type TableSummary struct {
	Table       string `json:"table"`
	Description string `json:"description"`
}

// SearchTables finds tables whose key or description contains pattern, case-insensitively.
func (s *Store) SearchTables(ctx context.Context, pattern string) ([]TableSummary, error) {
	like := "%" + pattern + "%"
	rows, err := s.db.QueryContext(ctx, `SELECT schema_name || '.' || table_name, description
		FROM tables
		WHERE schema_name || '.' || table_name LIKE ? OR description LIKE ?
		ORDER BY schema_name, table_name`, like, like)
	if err != nil {
		return nil, xerrors.Errorf("search tables: %w", err)
	}
	defer rows.Close()

	res := []TableSummary{}
	for rows.Next() {
		var ts TableSummary
		if err := rows.Scan(&ts.Table, &ts.Description); err != nil {
			return nil, xerrors.Errorf("scan table: %w", err)
		}
		res = append(res, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Errorf("read tables: %w", err)
	}
	return res, nil
}

// DomainTables lists the tables mapped to domain.
func (s *Store) DomainTables(ctx context.Context, domain string) ([]string, error) {
	return s.strings(ctx, `SELECT table_key FROM table_domains WHERE domain = ? ORDER BY table_key`, domain)
}

func (s *Store) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Errorf("query: %w", err)
	}
	defer rows.Close()

	res := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, xerrors.Errorf("scan: %w", err)
		}
		res = append(res, v)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Errorf("read rows: %w", err)
	}
	return res, nil
}

package schema

type buildConfig struct {
	strictDuplicates bool
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// WithStrictDuplicates makes a repeated (schema, table) pair a LoadError
// instead of silently replacing the earlier record.
func WithStrictDuplicates() BuildOption {
	return func(c *buildConfig) { c.strictDuplicates = true }
}

// Build assembles the graph from validated records.
// Either the whole graph is returned or a *LoadError.
func Build(tables []TableRecord, columns []ColumnRecord, opts ...BuildOption) (*Graph, error) {
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	g := newGraph()

	// первый проход: таблицы. Повторный ключ перезаписывает предыдущую запись.
	var duplicates []string
	for _, rec := range tables {
		table := &Table{
			Name: Identifier{
				Schema: rec.Schema,
				Name:   rec.Table,
			},
			Description: rec.Description,
			Columns:     []*Column{},
		}
		if g.put(table) {
			duplicates = append(duplicates, table.String())
		}
	}
	if cfg.strictDuplicates && len(duplicates) > 0 {
		return nil, NewLoadError(duplicates, "Found duplicate table records")
	}

	// второй проход: колонки в порядке входных данных
	var orphans []string
	for _, rec := range columns {
		table, ok := g.Table(rec.Schema, rec.Table)
		if !ok {
			orphans = append(orphans, rec.String())
			continue
		}
		col := rec.Column
		table.Columns = append(table.Columns, &col)
	}

	if len(orphans) > 0 {
		return nil, NewLoadError(orphans, "Found columns referencing non-existent tables")
	}

	return g, nil
}

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableRec(schema, table string) TableRecord {
	return TableRecord{Schema: schema, Table: table}
}

func columnRec(schema, table, column string) ColumnRecord {
	return ColumnRecord{Schema: schema, Table: table, Column: Column{Name: column}}
}

func fkRec(schema, table, column string, ref Reference) ColumnRecord {
	rec := columnRec(schema, table, column)
	rec.Column.IsForeignKey = true
	rec.Column.References = &ref
	return rec
}

func columnNames(t *Table) []string {
	res := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		res = append(res, col.Name)
	}
	return res
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		tables  []TableRecord
		columns []ColumnRecord
		// ожидаемые колонки по ключу таблицы
		expected map[string][]string
		order    []string
	}{
		{
			name:    "single table",
			tables:  []TableRecord{tableRec("clinical", "patient")},
			columns: []ColumnRecord{columnRec("clinical", "patient", "patient_id")},
			expected: map[string][]string{
				"clinical.patient": {"patient_id"},
			},
			order: []string{"clinical.patient"},
		},
		{
			name: "columns keep input order",
			tables: []TableRecord{
				tableRec("clinical", "patient"),
				tableRec("clinical", "encounter"),
			},
			columns: []ColumnRecord{
				columnRec("clinical", "encounter", "encounter_id"),
				columnRec("clinical", "patient", "patient_id"),
				columnRec("clinical", "encounter", "patient_id"),
				columnRec("clinical", "patient", "name"),
				columnRec("clinical", "encounter", "started_at"),
			},
			expected: map[string][]string{
				"clinical.patient":   {"patient_id", "name"},
				"clinical.encounter": {"encounter_id", "patient_id", "started_at"},
			},
			order: []string{"clinical.patient", "clinical.encounter"},
		},
		{
			name: "tables grouped by schema",
			tables: []TableRecord{
				tableRec("billing", "claim"),
				tableRec("clinical", "patient"),
				tableRec("billing", "payment"),
			},
			expected: map[string][]string{
				"billing.claim":    {},
				"clinical.patient": {},
				"billing.payment":  {},
			},
			order: []string{"billing.claim", "billing.payment", "clinical.patient"},
		},
		{
			name: "duplicate table overwritten in place",
			tables: []TableRecord{
				{Schema: "s", Table: "a", Description: "first"},
				tableRec("s", "b"),
				{Schema: "s", Table: "a", Description: "second"},
			},
			columns: []ColumnRecord{columnRec("s", "a", "id")},
			expected: map[string][]string{
				"s.a": {"id"},
				"s.b": {},
			},
			order: []string{"s.a", "s.b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := require.New(t)
			g, err := Build(tt.tables, tt.columns)
			r.NoError(err)
			r.Equal(len(tt.expected), g.Len())

			for key, cols := range tt.expected {
				table, ok := g.TableByKey(key)
				r.True(ok, key)
				assert.Equal(t, cols, columnNames(table), key)
			}

			var order []string
			for _, table := range g.Tables() {
				order = append(order, table.String())
			}
			assert.Equal(t, tt.order, order)
		})
	}
}

func TestBuildDuplicateLastWriteWins(t *testing.T) {
	g, err := Build([]TableRecord{
		{Schema: "s", Table: "a", Description: "first"},
		{Schema: "s", Table: "a", Description: "second"},
	}, nil)
	require.NoError(t, err)

	table, ok := g.Table("s", "a")
	require.True(t, ok)
	assert.Equal(t, "second", table.Description)
	assert.Equal(t, 1, g.Len())
}

func TestBuildStrictDuplicates(t *testing.T) {
	_, err := Build([]TableRecord{
		tableRec("s", "a"),
		tableRec("s", "a"),
		tableRec("s", "b"),
	}, nil, WithStrictDuplicates())
	require.Error(t, err)
	require.True(t, IsLoadError(err))
	assert.Contains(t, err.Error(), "s.a")
	assert.NotContains(t, err.Error(), "s.b")
}

func TestBuildOrphanedColumns(t *testing.T) {
	g, err := Build(
		[]TableRecord{tableRec("clinical", "patient")},
		[]ColumnRecord{
			columnRec("clinical", "patient", "patient_id"),
			columnRec("clinical", "visit", "visit_id"),
			columnRec("billing", "patient", "patient_id"),
		},
	)
	require.Error(t, err)
	require.Nil(t, g)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, []string{"clinical.visit.visit_id", "billing.patient.patient_id"}, le.Details)
	assert.Contains(t, err.Error(), "clinical.visit.visit_id")
}

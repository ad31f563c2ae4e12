package parse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Feresey/metagraph/parse/queries"
)

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	lc := zap.NewDevelopmentConfig()
	lc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	log, err := lc.Build(zap.AddStacktrace(zap.WarnLevel))
	require.NoError(t, err)
	return log
}

func TestParserLoadStreams(t *testing.T) {
	tests := []*struct {
		name    string
		tables  []queries.Table
		columns []queries.Column
		fks     []queries.ForeignKey

		wantTables  []string
		wantColumns []string
		wantRefs    map[string]string
	}{
		{
			name: "foreign key",
			tables: []queries.Table{
				{OID: 1, Schema: "clinical", Table: "encounter"},
				{OID: 2, Schema: "clinical", Table: "patient", Description: "people"},
			},
			columns: []queries.Column{
				{TableOID: 1, ColumnName: "encounter_id", DataType: "integer", IsPrimaryKey: true},
				{TableOID: 1, ColumnName: "patient_id", DataType: "integer"},
				{TableOID: 2, ColumnName: "patient_id", DataType: "integer", IsPrimaryKey: true},
			},
			fks: []queries.ForeignKey{
				{
					TableOID:          1,
					ColumnName:        "patient_id",
					ForeignSchemaName: "clinical",
					ForeignTableName:  "patient",
					ForeignColumnName: "patient_id",
				},
			},
			wantTables:  []string{"clinical.encounter", "clinical.patient"},
			wantColumns: []string{"clinical.encounter.encounter_id", "clinical.encounter.patient_id", "clinical.patient.patient_id"},
			wantRefs: map[string]string{
				"clinical.encounter.patient_id": "clinical.patient.patient_id",
			},
		},
		{
			name:        "column of unselected table skipped",
			tables:      []queries.Table{{OID: 1, Schema: "public", Table: "a"}},
			columns:     []queries.Column{{TableOID: 1, ColumnName: "id"}, {TableOID: 7, ColumnName: "lost"}},
			wantTables:  []string{"public.a"},
			wantColumns: []string{"public.a.id"},
			wantRefs:    map[string]string{},
		},
	}

	log := testLogger(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := require.New(t)
			q := NewMockQueries(t)
			q.EXPECT().Tables(mock.Anything, mock.Anything, mock.Anything).Return(tt.tables, nil)
			q.EXPECT().Columns(mock.Anything, mock.Anything, mock.Anything).Return(tt.columns, nil)
			q.EXPECT().ForeignKeys(mock.Anything, mock.Anything, mock.Anything).Return(tt.fks, nil)

			p := Parser{
				conn: nil,
				log:  log.Named(tt.name),
				q:    q,
			}
			tables, columns, err := p.LoadStreams(context.Background(), Config{
				Patterns: []Pattern{{Schema: "%"}},
			})
			r.NoError(err)

			ds, err := Load(tables, columns)
			r.NoError(err)

			var gotTables []string
			for _, rec := range ds.Tables {
				gotTables = append(gotTables, rec.String())
			}
			assert.Equal(t, tt.wantTables, gotTables)

			var gotColumns []string
			gotRefs := make(map[string]string)
			for _, rec := range ds.Columns {
				gotColumns = append(gotColumns, rec.String())
				if rec.Column.IsForeignKey {
					gotRefs[rec.String()] = rec.Column.References.String()
				}
			}
			assert.Equal(t, tt.wantColumns, gotColumns)
			assert.Equal(t, tt.wantRefs, gotRefs)
		})
	}
}

func TestParserQueryError(t *testing.T) {
	q := NewMockQueries(t)
	q.EXPECT().Tables(mock.Anything, mock.Anything, mock.Anything).
		Return(nil, queries.Error{Err: errors.New("boom"), Message: "query"})

	p := Parser{log: testLogger(t), q: q}
	_, _, err := p.LoadStreams(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load tables: ")

	var qe queries.Error
	require.ErrorAs(t, err, &qe)
	assert.Contains(t, qe.Pretty(), "boom")
}

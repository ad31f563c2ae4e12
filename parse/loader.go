package parse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/xerrors"

	"github.com/Feresey/metagraph/schema"
)

// Поля входных файлов.
const (
	FieldSchemaName       = "schema_name"
	FieldTableName        = "table_name"
	FieldTableDescription = "table_description"
	FieldColumnName       = "column_name"
	FieldDataType         = "data_type"
	FieldIsPrimaryKey     = "is_primary_key"
	FieldIsForeignKey     = "is_foreign_key"
	FieldReferencesSchema = "references_schema"
	FieldReferencesTable  = "references_table"
	FieldReferencesColumn = "references_column"
	FieldDescription      = "description"
)

var (
	TableFields = []string{FieldSchemaName, FieldTableName, FieldTableDescription}

	ColumnFields = []string{
		FieldSchemaName, FieldTableName, FieldColumnName, FieldDataType,
		FieldIsPrimaryKey, FieldIsForeignKey,
		FieldReferencesSchema, FieldReferencesTable, FieldReferencesColumn,
		FieldDescription,
	}

	tableRequired  = []string{FieldSchemaName, FieldTableName}
	columnRequired = []string{FieldSchemaName, FieldTableName, FieldColumnName}
)

// Dataset is the validated content of both streams.
type Dataset struct {
	Tables  []schema.TableRecord
	Columns []schema.ColumnRecord
}

// Load validates both streams and converts them to records.
// The tables stream is read and checked completely before the columns stream is touched.
// Every validation failure is a *schema.LoadError.
func Load(tables, columns Stream) (*Dataset, error) {
	tableRows, err := readAll(tables, tableRequired, "tables")
	if err != nil {
		return nil, err
	}
	columnRows, err := readAll(columns, columnRequired, "columns")
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Tables:  make([]schema.TableRecord, 0, len(tableRows)),
		Columns: make([]schema.ColumnRecord, 0, len(columnRows)),
	}
	for _, row := range tableRows {
		ds.Tables = append(ds.Tables, tableRecord(row))
	}
	for _, row := range columnRows {
		ds.Columns = append(ds.Columns, columnRecord(row))
	}
	return ds, nil
}

// LoadFiles opens both csv files and calls Load.
func LoadFiles(tablesPath, columnsPath string) (ds *Dataset, err error) {
	tf, err := os.Open(tablesPath)
	if err != nil {
		return nil, xerrors.Errorf("open tables file: %w", err)
	}
	defer func() { err = errors.Join(err, tf.Close()) }()

	cf, err := os.Open(columnsPath)
	if err != nil {
		return nil, xerrors.Errorf("open columns file: %w", err)
	}
	defer func() { err = errors.Join(err, cf.Close()) }()

	return Load(
		NewCSVStream(tf, tablesPath),
		NewCSVStream(cf, columnsPath),
	)
}

func readAll(s Stream, required []string, kind string) ([]Record, error) {
	header, err := s.Header()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, readError(s, err)
	}

	fields := mapset.NewThreadUnsafeSet(header...)
	var missing []string
	for _, field := range required {
		if !fields.Contains(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, schema.NewLoadError(nil,
			"Missing required fields in %s: %s", s.Source(), strings.Join(missing, ", "))
	}

	var rows []Record
	for {
		rec, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(s, err)
		}

		for field, value := range rec {
			if !utf8.ValidString(value) {
				return nil, schema.NewLoadError(nil,
					"File encoding error in %s: invalid UTF-8 in field %q, row %d",
					s.Source(), field, len(rows)+1)
			}
		}
		for _, field := range required {
			if rec[field] == "" {
				return nil, schema.NewLoadError(nil,
					"Missing values for required fields in %s, row: %v", s.Source(), rec)
			}
		}
		rows = append(rows, rec)
	}

	if len(rows) == 0 {
		return nil, schema.NewLoadError(nil, "No data found in %s file: %s", kind, s.Source())
	}
	return rows, nil
}

func readError(s Stream, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return schema.NewLoadError(nil, "CSV parsing error in %s: %v", s.Source(), pe)
	}
	return schema.NewLoadError(nil, "Read error in %s: %v", s.Source(), err)
}

func tableRecord(r Record) schema.TableRecord {
	return schema.TableRecord{
		Schema:      r[FieldSchemaName],
		Table:       r[FieldTableName],
		Description: r[FieldTableDescription],
	}
}

func columnRecord(r Record) schema.ColumnRecord {
	col := schema.Column{
		Name:         r[FieldColumnName],
		Type:         r[FieldDataType],
		IsPrimaryKey: parseBool(r[FieldIsPrimaryKey]),
		IsForeignKey: parseBool(r[FieldIsForeignKey]),
		Description:  r[FieldDescription],
	}
	ref := schema.Reference{
		Schema: r[FieldReferencesSchema],
		Table:  r[FieldReferencesTable],
		Column: r[FieldReferencesColumn],
	}
	if ref != (schema.Reference{}) {
		col.References = &ref
	}
	return schema.ColumnRecord{
		Schema: r[FieldSchemaName],
		Table:  r[FieldTableName],
		Column: col,
	}
}

// только точное "true" считается истиной
func parseBool(v string) bool { return v == "true" }

func (r Record) String() string { return fmt.Sprint(map[string]string(r)) }

package schema

import (
	"encoding/json"
)

// Identifier описывает имя таблицы внутри графа.
type Identifier struct {
	// Schema name
	Schema string `json:"schema,omitempty"`
	// Имя элемента
	Name string `json:"name,omitempty"`
}

// String возвращает ключ таблицы в формате "schema.table".
func (i Identifier) String() string { return i.Schema + "." + i.Name }

// Reference указывает на колонку, на которую ссылается внешний ключ.
// Любая из частей может быть пустой.
type Reference struct {
	Schema string `json:"schema,omitempty"`
	Table  string `json:"table,omitempty"`
	Column string `json:"column,omitempty"`
}

// Complete reports whether all three parts of the reference are set.
func (r *Reference) Complete() bool {
	return r != nil && r.Schema != "" && r.Table != "" && r.Column != ""
}

func (r *Reference) String() string { return r.Schema + "." + r.Table + "." + r.Column }

// TableKey returns the key of the referenced table.
func (r *Reference) TableKey() string { return Identifier{Schema: r.Schema, Name: r.Table}.String() }

// Column описывает колонку таблицы.
type Column struct {
	// Имя колонки
	Name string `json:"column_name"`
	// Объявленный тип
	Type         string `json:"data_type,omitempty"`
	IsPrimaryKey bool   `json:"is_primary_key"`
	IsForeignKey bool   `json:"is_foreign_key"`
	// nil, если ни одна часть ссылки не указана
	References  *Reference `json:"references,omitempty"`
	Description string     `json:"description,omitempty"`
}

func (c *Column) String() string { return c.Name }

// Table описывает таблицу. Колонки хранятся в порядке входных данных.
type Table struct {
	Name        Identifier `json:"-"`
	Description string     `json:"description"`
	Columns     []*Column  `json:"columns"`
}

func (t *Table) String() string { return t.Name.String() }

// Schema группирует таблицы одного пространства имен.
type Schema struct {
	Name   string
	Tables map[string]*Table

	// порядок первой вставки таблиц
	order []string
}

// TableNames returns table names in the order they were first inserted.
func (s *Schema) TableNames() []string {
	res := make([]string, len(s.order))
	copy(res, s.order)
	return res
}

func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Tables)
}

// Graph is the root of the model: schema name to Schema.
// It is built once by Build and never mutated afterwards.
type Graph struct {
	Schemas map[string]*Schema

	order  []string
	byKey  map[string]*Table
	nTable int
}

func newGraph() *Graph {
	return &Graph{
		Schemas: make(map[string]*Schema),
		byKey:   make(map[string]*Table),
	}
}

// SchemaNames returns schema names in the order of first appearance.
func (g *Graph) SchemaNames() []string {
	res := make([]string, len(g.order))
	copy(res, g.order)
	return res
}

// Table looks a table up by its schema and name.
func (g *Graph) Table(schemaName, tableName string) (*Table, bool) {
	s, ok := g.Schemas[schemaName]
	if !ok {
		return nil, false
	}
	t, ok := s.Tables[tableName]
	return t, ok
}

// TableByKey looks a table up by its "schema.table" key.
func (g *Graph) TableByKey(key string) (*Table, bool) {
	t, ok := g.byKey[key]
	return t, ok
}

// Tables returns every table grouped by schema, both levels in insertion order.
func (g *Graph) Tables() []*Table {
	res := make([]*Table, 0, g.nTable)
	for _, schemaName := range g.order {
		s := g.Schemas[schemaName]
		for _, tableName := range s.order {
			res = append(res, s.Tables[tableName])
		}
	}
	return res
}

// Len returns the number of tables.
func (g *Graph) Len() int { return g.nTable }

// put inserts or replaces the table, keeping the position of the first insertion.
func (g *Graph) put(t *Table) (replaced bool) {
	s, ok := g.Schemas[t.Name.Schema]
	if !ok {
		s = &Schema{
			Name:   t.Name.Schema,
			Tables: make(map[string]*Table),
		}
		g.Schemas[s.Name] = s
		g.order = append(g.order, s.Name)
	}
	if _, ok := s.Tables[t.Name.Name]; ok {
		replaced = true
	} else {
		s.order = append(s.order, t.Name.Name)
		g.nTable++
	}
	s.Tables[t.Name.Name] = t
	g.byKey[t.String()] = t
	return replaced
}

func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Schemas)
}

// TableRecord is one validated row of the tables dataset.
type TableRecord struct {
	Schema      string
	Table       string
	Description string
}

func (r TableRecord) String() string {
	return Identifier{Schema: r.Schema, Name: r.Table}.String()
}

// ColumnRecord is one validated row of the columns dataset.
type ColumnRecord struct {
	Schema string
	Table  string
	Column Column
}

func (r ColumnRecord) String() string {
	return r.Schema + "." + r.Table + "." + r.Column.Name
}

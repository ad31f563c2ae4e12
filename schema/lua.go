package schema

import (
	lua "github.com/yuin/gopher-lua"
)

// ToLua exports the graph as a Lua table:
//
//	{ tables = { ["schema.table"] = { schema, name, description, columns = {...} } } }
func (g *Graph) ToLua(l *lua.LState) *lua.LTable {
	schema := l.NewTable()

	tables := l.NewTable()
	schema.RawSetString("tables", tables)
	for _, table := range g.Tables() {
		tables.RawSetString(table.String(), table.ToLua(l))
	}

	return schema
}

func (t *Table) ToLua(l *lua.LState) *lua.LTable {
	table := l.NewTable()
	table.RawSetString("schema", lua.LString(t.Name.Schema))
	table.RawSetString("name", lua.LString(t.Name.Name))
	table.RawSetString("description", lua.LString(t.Description))

	// массив, чтобы сохранить порядок колонок
	cols := l.NewTable()
	table.RawSetString("columns", cols)
	for _, col := range t.Columns {
		cols.Append(col.ToLua(l))
	}

	return table
}

func (c *Column) ToLua(l *lua.LState) *lua.LTable {
	lc := l.NewTable()
	lc.RawSetString("name", lua.LString(c.Name))
	lc.RawSetString("type", lua.LString(c.Type))
	lc.RawSetString("pk", lua.LBool(c.IsPrimaryKey))
	lc.RawSetString("fk", lua.LBool(c.IsForeignKey))
	lc.RawSetString("description", lua.LString(c.Description))
	if c.References != nil {
		ref := l.NewTable()
		ref.RawSetString("schema", lua.LString(c.References.Schema))
		ref.RawSetString("table", lua.LString(c.References.Table))
		ref.RawSetString("column", lua.LString(c.References.Column))
		lc.RawSetString("references", ref)
	}
	return lc
}

// ToLua exports edges keyed by the source table.
func (r Relationships) ToLua(l *lua.LState) *lua.LTable {
	lr := l.NewTable()
	for key, edges := range r {
		le := l.NewTable()
		for _, e := range edges {
			edge := l.NewTable()
			edge.RawSetString("from_column", lua.LString(e.FromColumn))
			edge.RawSetString("to", lua.LString(e.Target()))
			edge.RawSetString("to_column", lua.LString(e.ToColumn))
			le.Append(edge)
		}
		lr.RawSetString(key, le)
	}
	return lr
}

package schema

// Edge описывает внешнюю связь, исходящую из колонки таблицы.
type Edge struct {
	FromColumn string `json:"from_column"`
	ToSchema   string `json:"to_schema"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// Target returns the key of the referenced table.
func (e Edge) Target() string { return Identifier{Schema: e.ToSchema, Name: e.ToTable}.String() }

// Relationships maps a table key to its outgoing edges.
// Every table of the graph has an entry, possibly empty.
type Relationships map[string][]Edge

// Resolve derives foreign key edges from column metadata.
//
// A foreign key column with an incomplete reference is skipped.
// A complete reference to an unknown table fails the whole resolution.
func Resolve(g *Graph) (Relationships, error) {
	rels := make(Relationships, g.Len())
	var invalid []string

	for _, table := range g.Tables() {
		tableKey := table.String()
		edges := []Edge{}

		for _, col := range table.Columns {
			if !col.IsForeignKey || !col.References.Complete() {
				continue
			}
			ref := col.References
			if _, ok := g.Table(ref.Schema, ref.Table); !ok {
				invalid = append(invalid, tableKey+"."+col.Name+" -> "+ref.String())
				continue
			}
			edges = append(edges, Edge{
				FromColumn: col.Name,
				ToSchema:   ref.Schema,
				ToTable:    ref.Table,
				ToColumn:   ref.Column,
			})
		}
		rels[tableKey] = edges
	}

	if len(invalid) > 0 {
		return nil, NewLoadError(invalid, "Found invalid foreign key references")
	}
	return rels, nil
}

// incomingEdge is an edge seen from the referenced table.
type incomingEdge struct {
	From       string
	FromColumn string
}

// incoming builds the reverse adjacency list, ordered by graph iteration order.
func (r Relationships) incoming(g *Graph) map[string][]incomingEdge {
	res := make(map[string][]incomingEdge, len(r))
	for _, table := range g.Tables() {
		from := table.String()
		for _, e := range r[from] {
			target := e.Target()
			res[target] = append(res[target], incomingEdge{
				From:       from,
				FromColumn: e.FromColumn,
			})
		}
	}
	return res
}

// Degree is the relationship degree of one table.
type Degree struct {
	Table    string `json:"table"`
	Outgoing int    `json:"outgoing"`
	Incoming int    `json:"incoming"`
}

// Total returns outgoing plus incoming edges.
func (d Degree) Total() int { return d.Outgoing + d.Incoming }

// Degrees returns the degree of every table in graph order.
func Degrees(g *Graph, rels Relationships) []Degree {
	in := make(map[string]int, g.Len())
	for _, edges := range rels {
		for _, e := range edges {
			in[e.Target()]++
		}
	}

	tables := g.Tables()
	res := make([]Degree, 0, len(tables))
	for _, table := range tables {
		key := table.String()
		res = append(res, Degree{
			Table:    key,
			Outgoing: len(rels[key]),
			Incoming: in[key],
		})
	}
	return res
}

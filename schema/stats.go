package schema

import "sort"

// TableStatistics is a read-only projection of one table.
type TableStatistics struct {
	TotalColumns int `json:"total_columns"`
	PrimaryKeys  int `json:"primary_keys"`
	ForeignKeys  int `json:"foreign_keys"`
}

// Statistics counts columns and key flags for every table.
func Statistics(g *Graph) map[string]TableStatistics {
	stats := make(map[string]TableStatistics, g.Len())
	for _, table := range g.Tables() {
		var ts TableStatistics
		ts.TotalColumns = len(table.Columns)
		for _, col := range table.Columns {
			if col.IsPrimaryKey {
				ts.PrimaryKeys++
			}
			if col.IsForeignKey {
				ts.ForeignKeys++
			}
		}
		stats[table.String()] = ts
	}
	return stats
}

type CentralTable struct {
	Table         string `json:"table"`
	Relationships int    `json:"relationship_count"`
}

// Usage describes how tables participate in relationships.
type Usage struct {
	Central  []CentralTable `json:"central_tables"`
	Isolated []string       `json:"isolated_tables"`
}

// AnalyzeUsage ranks tables by relationship degree and finds isolated ones.
// Tables without edges never appear in Central. limit <= 0 keeps every table.
func AnalyzeUsage(g *Graph, rels Relationships, limit int) Usage {
	degrees := Degrees(g, rels)

	usage := Usage{
		Central:  []CentralTable{},
		Isolated: []string{},
	}
	for _, d := range degrees {
		if d.Total() == 0 {
			usage.Isolated = append(usage.Isolated, d.Table)
			continue
		}
		usage.Central = append(usage.Central, CentralTable{
			Table:         d.Table,
			Relationships: d.Total(),
		})
	}

	sort.SliceStable(usage.Central, func(i, j int) bool {
		return usage.Central[i].Relationships > usage.Central[j].Relationships
	})
	if limit > 0 && len(usage.Central) > limit {
		usage.Central = usage.Central[:limit]
	}
	return usage
}

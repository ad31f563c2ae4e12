package render

import (
	"errors"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Feresey/metagraph/enrich"
	"github.com/Feresey/metagraph/schema"
)

var (
	ErrNoClassification = errors.New("domain classification is not available")
	ErrNoPatterns       = errors.New("pattern analysis is not available")
)

// Input is everything the artifacts are rendered from. Domains and Patterns are
// optional; artifacts that need them fail without affecting the others.
type Input struct {
	Graph         *schema.Graph
	Relationships schema.Relationships
	Usage         schema.Usage
	RelatedDepth  int

	Domains  *enrich.Classification
	Patterns *enrich.PatternAnalysis
}

// erEntity is one table block of an erDiagram.
type erEntity struct {
	Key     string
	Columns []*schema.Column
}

// erLink is a foreign key drawn between two entities.
type erLink struct {
	From   string
	To     string
	Column string
}

type erDiagram struct {
	Name     string
	Entities []erEntity
	Links    []erLink
}

// diagram builds an erDiagram of the tables accepted by keep, with links inside that set.
func diagram(in *Input, name string, keep func(key string) bool) erDiagram {
	d := erDiagram{Name: name}
	for _, t := range in.Graph.Tables() {
		key := t.String()
		if !keep(key) {
			continue
		}
		d.Entities = append(d.Entities, erEntity{Key: key, Columns: t.Columns})
		for _, e := range in.Relationships[key] {
			if keep(e.Target()) {
				d.Links = append(d.Links, erLink{From: key, To: e.Target(), Column: e.FromColumn})
			}
		}
	}
	return d
}

type domainView struct {
	Name        string
	Description string
	Tables      []string
}

type domainLink struct {
	From  string
	To    string
	Label string
}

type ecosystemData struct {
	Domains []domainView
	Links   []domainLink
}

func ecosystem(in *Input) (any, error) {
	if in.Domains == nil {
		return nil, ErrNoClassification
	}
	data := ecosystemData{}

	descriptions := make(map[string]string)
	for _, d := range in.Domains.Domains {
		descriptions[d.Name] = d.Description
	}
	for _, name := range in.Domains.DomainNames() {
		data.Domains = append(data.Domains, domainView{
			Name:        name,
			Description: descriptions[name],
			Tables:      in.Domains.TableMappings.Tables(name),
		})
	}

	linked := mapset.NewThreadUnsafeSet[[2]string]()
	for _, r := range in.Domains.Relationships {
		if r.From == "" || r.To == "" {
			continue
		}
		linked.Add([2]string{r.From, r.To})
		data.Links = append(data.Links, domainLink{From: r.From, To: r.To, Label: r.Description})
	}

	// связи между доменами, которые следуют из внешних ключей
	counts := make(map[[2]string]int)
	var order [][2]string
	for _, t := range in.Graph.Tables() {
		key := t.String()
		for _, e := range in.Relationships[key] {
			for _, from := range in.Domains.TableMappings[key] {
				for _, to := range in.Domains.TableMappings[e.Target()] {
					pair := [2]string{from, to}
					if from == to || linked.Contains(pair) {
						continue
					}
					if counts[pair] == 0 {
						order = append(order, pair)
					}
					counts[pair]++
				}
			}
		}
	}
	for _, pair := range order {
		data.Links = append(data.Links, domainLink{
			From:  pair[0],
			To:    pair[1],
			Label: fmt.Sprintf("%d foreign keys", counts[pair]),
		})
	}
	return data, nil
}

type diagramsData struct {
	Diagrams []erDiagram
	// ссылки, которые не попали ни в одну диаграмму
	Cross []erLink
}

func domainModels(in *Input) (any, error) {
	if in.Domains == nil {
		return nil, ErrNoClassification
	}
	var data diagramsData
	for _, name := range in.Domains.DomainNames() {
		tables := mapset.NewThreadUnsafeSet(in.Domains.TableMappings.Tables(name)...)
		d := diagram(in, name, func(key string) bool { return tables.Contains(key) })
		if len(d.Entities) == 0 {
			continue
		}
		data.Diagrams = append(data.Diagrams, d)
	}
	return data, nil
}

func schemaOverview(in *Input) (any, error) {
	var data diagramsData
	for _, name := range in.Graph.SchemaNames() {
		s := in.Graph.Schemas[name]
		data.Diagrams = append(data.Diagrams, diagram(in, name, func(key string) bool {
			t, ok := in.Graph.TableByKey(key)
			return ok && t.Name.Schema == s.Name
		}))
	}
	for _, t := range in.Graph.Tables() {
		key := t.String()
		for _, e := range in.Relationships[key] {
			if e.ToSchema != t.Name.Schema {
				data.Cross = append(data.Cross, erLink{From: key, To: e.Target(), Column: e.FromColumn})
			}
		}
	}
	return data, nil
}

type centralData struct {
	Center  string
	Depth   int
	Central []schema.CentralTable
	// Nodes are the reached tables except the center, in traversal order.
	Nodes []string
	// направленные ребра обхода, без повторов
	Links []erLink
}

func centralTables(in *Input) (any, error) {
	data := centralData{
		Depth:   in.RelatedDepth,
		Central: in.Usage.Central,
	}
	if len(in.Usage.Central) == 0 {
		return data, nil
	}
	data.Center = in.Usage.Central[0].Table

	rel, err := schema.Related(in.Graph, in.Relationships, data.Center, in.RelatedDepth)
	if err != nil {
		return nil, err
	}

	seen := mapset.NewThreadUnsafeSet[erLink]()
	nodes := mapset.NewThreadUnsafeSet(data.Center)
	add := func(l erLink) {
		if !seen.Add(l) {
			return
		}
		data.Links = append(data.Links, l)
		for _, n := range [...]string{l.From, l.To} {
			if nodes.Add(n) {
				data.Nodes = append(data.Nodes, n)
			}
		}
	}
	type item struct {
		table string
		rel   *schema.Relations
	}
	queue := []item{{data.Center, rel}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		for _, l := range it.rel.Outgoing {
			add(erLink{From: it.table, To: l.Table, Column: l.ViaColumn})
			if l.Relationships != nil {
				queue = append(queue, item{l.Table, l.Relationships})
			}
		}
		for _, l := range it.rel.Incoming {
			add(erLink{From: l.Table, To: it.table, Column: l.ViaColumn})
			if l.Relationships != nil {
				queue = append(queue, item{l.Table, l.Relationships})
			}
		}
	}
	return data, nil
}

type heatRow struct {
	schema.Degree
	schema.TableStatistics
	// Heat is Total scaled to 0..heatScale against the busiest table.
	Heat int
}

const heatScale = 10

type heatmapData struct {
	Rows     []heatRow
	Max      int
	Isolated []string
}

func heatmap(in *Input) (any, error) {
	stats := schema.Statistics(in.Graph)
	degrees := schema.Degrees(in.Graph, in.Relationships)

	data := heatmapData{Isolated: in.Usage.Isolated}
	for _, d := range degrees {
		data.Rows = append(data.Rows, heatRow{
			Degree:          d,
			TableStatistics: stats[d.Table],
		})
		if d.Total() > data.Max {
			data.Max = d.Total()
		}
	}
	if data.Max > 0 {
		for i := range data.Rows {
			data.Rows[i].Heat = (data.Rows[i].Total()*heatScale + data.Max - 1) / data.Max
		}
	}
	sort.SliceStable(data.Rows, func(i, j int) bool {
		return data.Rows[i].Total() > data.Rows[j].Total()
	})
	return data, nil
}

func accessPatterns(in *Input) (any, error) {
	if in.Patterns == nil {
		return nil, ErrNoPatterns
	}
	return in.Patterns, nil
}

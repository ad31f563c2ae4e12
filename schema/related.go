package schema

import (
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/xerrors"
)

// Link is one step of a traversal. Relationships is nil for a leaf.
type Link struct {
	Table         string     `json:"table"`
	ViaColumn     string     `json:"via_column"`
	Relationships *Relations `json:"relationships,omitempty"`
}

// Relations lists the neighbours of an expanded table.
type Relations struct {
	Outgoing []*Link `json:"outgoing"`
	Incoming []*Link `json:"incoming"`
}

// Related walks relationships around start for at most depth levels.
//
// The visited set is shared by the whole walk, so a table is expanded at most once
// even when a later branch reaches it by a shorter path. Expansion is depth-first,
// outgoing links before incoming ones.
func Related(g *Graph, rels Relationships, start string, depth int) (*Relations, error) {
	if depth < 1 {
		return nil, xerrors.Errorf("depth must be at least 1, got %d", depth)
	}
	if _, ok := g.TableByKey(start); !ok {
		return nil, xerrors.Errorf("table %q not found", start)
	}

	incoming := rels.incoming(g)
	visited := mapset.NewThreadUnsafeSet[string]()

	type frame struct {
		table string
		level int
		// ссылка, в которую надо записать результат; nil для корня
		link *Link
	}

	var root *Relations
	stack := []frame{{table: start, level: 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.level > depth || visited.Contains(f.table) {
			continue
		}
		visited.Add(f.table)

		rel := &Relations{
			Outgoing: []*Link{},
			Incoming: []*Link{},
		}
		if f.link == nil {
			root = rel
		} else {
			f.link.Relationships = rel
		}

		var next []frame
		for _, e := range rels[f.table] {
			link := &Link{Table: e.Target(), ViaColumn: e.FromColumn}
			rel.Outgoing = append(rel.Outgoing, link)
			next = append(next, frame{table: link.Table, level: f.level + 1, link: link})
		}
		for _, in := range incoming[f.table] {
			link := &Link{Table: in.From, ViaColumn: in.FromColumn}
			rel.Incoming = append(rel.Incoming, link)
			next = append(next, frame{table: link.Table, level: f.level + 1, link: link})
		}
		// в обратном порядке, чтобы первый сосед раскрывался первым
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}

	return root, nil
}

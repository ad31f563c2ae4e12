package render

import (
	"strconv"
	"strings"
	"text/template"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-openapi/inflect"
)

// mermaidID turns any name into an identifier Mermaid accepts without quoting.
func mermaidID(name string) string {
	id := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) || r == '_' {
			return r
		}
		return '_'
	}, name)
	if id == "" || unicode.IsDigit(rune(id[0])) {
		id = "n_" + id
	}
	return id
}

// nodeIDs hands out Mermaid node ids for one document. Names that map to the same
// identifier get a numeric suffix, so two names never share a node.
type nodeIDs struct {
	ids  map[string]string
	used mapset.Set[string]
}

func newNodeIDs(in *Input) *nodeIDs {
	n := &nodeIDs{
		ids:  make(map[string]string),
		used: mapset.NewThreadUnsafeSet[string](),
	}
	// таблицы первыми, чтобы их id не зависели от порядка в шаблоне
	if in != nil && in.Graph != nil {
		for _, t := range in.Graph.Tables() {
			n.id(t.String())
		}
	}
	if in != nil && in.Domains != nil {
		for _, name := range in.Domains.DomainNames() {
			n.id(name)
		}
	}
	return n
}

func (n *nodeIDs) alloc(key, base string) string {
	if id, ok := n.ids[key]; ok {
		return id
	}
	id := base
	for i := 2; n.used.Contains(id); i++ {
		id = base + "_" + strconv.Itoa(i)
	}
	n.used.Add(id)
	n.ids[key] = id
	return id
}

func (n *nodeIDs) id(name string) string {
	return n.alloc(name, mermaidID(name))
}

// member is the id of a table node placed inside a domain subgraph.
func (n *nodeIDs) member(domain, table string) string {
	return n.alloc(domain+"\x00"+table, mermaidID(domain)+"__"+mermaidID(table))
}

func (n *nodeIDs) funcs() template.FuncMap {
	return template.FuncMap{
		"id":     n.id,
		"member": n.member,
	}
}

// mermaidType shortens a declared type to a single token for erDiagram attributes.
func mermaidType(dataType string) string {
	dt := strings.ToLower(strings.TrimSpace(dataType))

	switch {
	case dt == "":
		return "unknown"
	case dt == "integer", dt == "int4":
		return "int"
	case dt == "bigint", dt == "int8":
		return "bigint"
	case strings.HasPrefix(dt, "character varying"), strings.HasPrefix(dt, "varchar"):
		return "varchar"
	case strings.HasPrefix(dt, "character"), strings.HasPrefix(dt, "char"):
		return "char"
	case strings.HasPrefix(dt, "timestamp with time zone"), dt == "timestamptz":
		return "timestamptz"
	case strings.HasPrefix(dt, "timestamp"):
		return "timestamp"
	case strings.HasPrefix(dt, "time"):
		return "time"
	case strings.HasPrefix(dt, "numeric"), strings.HasPrefix(dt, "decimal"):
		return "numeric"
	case dt == "double precision":
		return "double"
	case strings.HasSuffix(dt, "[]"):
		return "array"
	default:
		return mermaidID(dt)
	}
}

// mermaidLabel makes text safe inside a quoted Mermaid label.
func mermaidLabel(text string) string {
	return strings.NewReplacer(`"`, "'", "\n", " ", "|", "/").Replace(text)
}

// title derives the document title from the artifact file name: "01_schema_overview.md" -> "01 Schema Overview".
func title(file string) string {
	return inflect.Titleize(strings.TrimSuffix(file, ".md"))
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"id":      mermaidID,
		"member":  func(domain, table string) string { return mermaidID(domain) + "__" + mermaidID(table) },
		"attr":    mermaidID,
		"colType": mermaidType,
		"label":   mermaidLabel,
	}
}

package enrich

import (
	"encoding/json"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Models answer in slightly different shapes. The types below accept the common
// variants and normalize them.

// Domain is a conceptual group of tables.
type Domain struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (d *Domain) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		d.Name = name
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	d.Name = firstString(obj, "name", "domain", "title")
	d.Description = firstString(obj, "description", "purpose")
	return nil
}

// TableMappings maps a table to the domains it belongs to.
// Both {"table": "Domain"} and {"Domain": ["table", ...]} are accepted.
type TableMappings map[string][]string

func (m *TableMappings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	res := make(TableMappings, len(raw))
	keys := maps.Keys(raw)
	slices.Sort(keys)
	for _, key := range keys {
		value := raw[key]

		var domain string
		if err := json.Unmarshal(value, &domain); err == nil {
			res.add(key, domain)
			continue
		}
		var tables []string
		if err := json.Unmarshal(value, &tables); err == nil {
			for _, table := range tables {
				res.add(table, key)
			}
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(value, &obj); err != nil {
			return err
		}
		if domain := firstString(obj, "domain", "name"); domain != "" {
			res.add(key, domain)
		}
	}
	*m = res
	return nil
}

// MarshalJSON writes the domain to tables shape, which UnmarshalJSON reads back unchanged.
func (m TableMappings) MarshalJSON() ([]byte, error) {
	byDomain := make(map[string][]string)
	for table, domains := range m {
		for _, d := range domains {
			byDomain[d] = append(byDomain[d], table)
		}
	}
	for _, tables := range byDomain {
		slices.Sort(tables)
	}
	return json.Marshal(byDomain)
}

func (m TableMappings) add(table, domain string) {
	if slices.Contains(m[table], domain) {
		return
	}
	m[table] = append(m[table], domain)
}

// Tables returns tables mapped to domain, sorted.
func (m TableMappings) Tables(domain string) []string {
	var res []string
	for table, domains := range m {
		if slices.Contains(domains, domain) {
			res = append(res, table)
		}
	}
	slices.Sort(res)
	return res
}

// DomainRelationship links two domains.
type DomainRelationship struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Description string `json:"description,omitempty"`
}

func (r *DomainRelationship) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		r.Description = text
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.From = firstString(obj, "from", "source", "from_domain", "domain1")
	r.To = firstString(obj, "to", "target", "to_domain", "domain2")
	r.Description = firstString(obj, "description", "relationship", "type", "label")
	return nil
}

// Classification is the result of domain classification.
type Classification struct {
	Domains       []Domain             `json:"domains"`
	TableMappings TableMappings        `json:"table_mappings"`
	Relationships []DomainRelationship `json:"relationships"`
}

// DomainNames returns declared domains followed by domains that only appear in mappings.
func (c *Classification) DomainNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, d := range c.Domains {
		if d.Name != "" && !seen[d.Name] {
			seen[d.Name] = true
			names = append(names, d.Name)
		}
	}

	var extra []string
	for _, domains := range c.TableMappings {
		for _, d := range domains {
			if !seen[d] {
				seen[d] = true
				extra = append(extra, d)
			}
		}
	}
	slices.Sort(extra)
	return append(names, extra...)
}

// Finding is one pattern, hierarchy or query path.
type Finding struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tables      []string `json:"tables,omitempty"`
}

func (f *Finding) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		f.Name = text
		f.Tables = splitPath(text)
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	f.Name = firstString(obj, "name", "pattern", "title", "root")
	f.Description = firstString(obj, "description", "purpose", "use_case")
	for _, key := range []string{"tables", "path", "entities", "levels", "children"} {
		if tables := stringList(obj[key]); len(tables) != 0 {
			f.Tables = tables
			break
		}
	}
	if f.Name == "" && len(f.Tables) != 0 {
		f.Name = strings.Join(f.Tables, " -> ")
	}
	return nil
}

// PatternAnalysis is the result of relationship analysis.
type PatternAnalysis struct {
	Patterns    []Finding `json:"patterns"`
	Hierarchies []Finding `json:"hierarchies"`
	KeyPaths    []Finding `json:"key_paths"`
}

func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func stringList(v any) []string {
	switch v := v.(type) {
	case string:
		return splitPath(v)
	case []any:
		res := make([]string, 0, len(v))
		for _, item := range v {
			switch item := item.(type) {
			case string:
				res = append(res, item)
			case map[string]any:
				if name := firstString(item, "name", "table"); name != "" {
					res = append(res, name)
				}
			}
		}
		return res
	default:
		return nil
	}
}

// splitPath splits "a -> b -> c". A string without arrows is not a path.
func splitPath(s string) []string {
	if !strings.Contains(s, "->") {
		return nil
	}
	parts := strings.Split(s, "->")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}

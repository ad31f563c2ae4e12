package enrich

import (
	"bytes"
	"embed"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/xerrors"

	"github.com/Feresey/metagraph/schema"
)

//go:embed prompts/*.tpl
var promptsFS embed.FS

type PromptName string

const (
	DomainClassificationPrompt PromptName = "domain_classification.tpl"
	RelationshipAnalysisPrompt PromptName = "relationship_analysis.tpl"
)

// JSONInstruction closes every prompt.
const JSONInstruction = "IMPORTANT: Return ONLY valid JSON without any additional text or explanation."

var prompts = template.Must(
	template.New("").
		Funcs(sprig.TxtFuncMap()).
		ParseFS(promptsFS, "prompts/*.tpl"))

// SchemaView is the serialized graph embedded into prompts and written as the processed snapshot.
type SchemaView struct {
	SchemaData    *schema.Graph                     `json:"schema_data"`
	Relationships schema.Relationships              `json:"relationships"`
	Statistics    map[string]schema.TableStatistics `json:"statistics"`
}

func NewSchemaView(g *schema.Graph, rels schema.Relationships) *SchemaView {
	return &SchemaView{
		SchemaData:    g,
		Relationships: rels,
		Statistics:    schema.Statistics(g),
	}
}

// patternContext is the view of the relationship analysis prompt.
type patternContext struct {
	Schema  *SchemaView     `json:"schema"`
	Domains *Classification `json:"domains"`
}

// Prompt renders the named prompt with view serialized as indented JSON.
func Prompt(name PromptName, view any) (string, error) {
	var buf bytes.Buffer
	err := prompts.ExecuteTemplate(&buf, string(name), struct {
		View        any
		Instruction string
	}{
		View:        view,
		Instruction: JSONInstruction,
	})
	if err != nil {
		return "", xerrors.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

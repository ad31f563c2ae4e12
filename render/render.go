// Package render writes the fixed set of Mermaid diagram documents.
package render

import (
	"bytes"
	"embed"
	"errors"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

//go:embed templates/*.tpl
var templatesFS embed.FS

type artifact struct {
	file string
	data func(*Input) (any, error)
}

// порядок определяет нумерацию файлов
var artifacts = []artifact{
	{"01_ecosystem_overview.md", ecosystem},
	{"02_domain_models.md", domainModels},
	{"03_schema_overview.md", schemaOverview},
	{"04_central_tables.md", centralTables},
	{"05_relationship_heatmap.md", heatmap},
	{"06_access_patterns.md", accessPatterns},
}

// Artifacts returns the file names of every artifact in render order.
func Artifacts() []string {
	res := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		res = append(res, a.file)
	}
	return res
}

type Renderer struct {
	dir string
	log *zap.Logger
	tpl *template.Template
}

func NewRenderer(log *zap.Logger, dir string) (*Renderer, error) {
	tpl, err := template.New("").
		Funcs(sprig.TxtFuncMap()).
		Funcs(funcMap()).
		ParseFS(templatesFS, "templates/*.tpl")
	if err != nil {
		return nil, xerrors.Errorf("parse templates: %w", err)
	}
	return &Renderer{
		dir: dir,
		log: log.Named("render"),
		tpl: tpl,
	}, nil
}

// Result is the outcome of one artifact.
type Result struct {
	File string
	Path string
	Err  error
}

// Report collects the outcome of every artifact.
type Report struct {
	Results []Result
}

func (r *Report) Failed() []Result {
	var res []Result
	for _, result := range r.Results {
		if result.Err != nil {
			res = append(res, result)
		}
	}
	return res
}

// Err joins the errors of every failed artifact.
func (r *Report) Err() error {
	var errs []error
	for _, result := range r.Failed() {
		errs = append(errs, xerrors.Errorf("%s: %w", result.File, result.Err))
	}
	return errors.Join(errs...)
}

// Render writes every artifact. A failing artifact is recorded and the rest still render.
func (r *Renderer) Render(in *Input) *Report {
	report := &Report{}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		for _, a := range artifacts {
			report.Results = append(report.Results, Result{File: a.file, Err: err})
		}
		return report
	}

	for i, a := range artifacts {
		log := r.log.With(zap.String("artifact", a.file))
		log.Info("generating artifact", zap.Int("num", i+1), zap.Int("total", len(artifacts)))

		path := filepath.Join(r.dir, a.file)
		err := r.renderOne(a, in, path)
		if err != nil {
			log.Warn("failed to generate artifact", zap.Error(err))
			path = ""
		} else {
			log.Info("generated artifact", zap.String("path", path))
		}
		report.Results = append(report.Results, Result{File: a.file, Path: path, Err: err})
	}
	return report
}

type page struct {
	Title string
	Data  any
}

func (r *Renderer) renderOne(a artifact, in *Input, path string) error {
	data, err := a.data(in)
	if err != nil {
		return err
	}

	tpl, err := r.tpl.Clone()
	if err != nil {
		return xerrors.Errorf("clone templates: %w", err)
	}
	tpl.Funcs(newNodeIDs(in).funcs())

	var buf bytes.Buffer
	err = tpl.ExecuteTemplate(&buf, a.file+".tpl", page{
		Title: title(a.file),
		Data:  data,
	})
	if err != nil {
		return xerrors.Errorf("execute template: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return xerrors.Errorf("write artifact: %w", err)
	}
	return nil
}

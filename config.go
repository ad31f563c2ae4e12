package main

import (
	"os"
	"strings"
	"time"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"

	"github.com/Feresey/metagraph/db"
	"github.com/Feresey/metagraph/oracle"
	"github.com/Feresey/metagraph/parse"
)

const (
	envAPIKey  = "OPENAI_API_KEY"
	envAPIBase = "OPENAI_API_BASE"
)

type FileConfig struct {
	Input struct {
		Tables  string   `yaml:"tables"`
		Columns string   `yaml:"columns"`
		DBConn  string   `yaml:"dbconn"`
		Schemas []string `yaml:"schemas"`
	} `yaml:"input"`
	Builder struct {
		StrictDuplicates bool `yaml:"strict_duplicates"`
	} `yaml:"builder"`
	Analysis struct {
		CentralLimit int `yaml:"central_limit"`
		RelatedDepth int `yaml:"related_depth"`
	} `yaml:"analysis"`
	Oracle struct {
		Provider    string        `yaml:"provider"`
		Model       string        `yaml:"model"`
		Temperature float32       `yaml:"temperature"`
		MaxTokens   int           `yaml:"max_tokens"`
		Timeout     time.Duration `yaml:"timeout"`
		Script      string        `yaml:"script"`
	} `yaml:"oracle"`
	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`

	// из окружения
	APIKey  string `yaml:"-"`
	APIBase string `yaml:"-"`
}

func defaultFileConfig() FileConfig {
	var fc FileConfig
	fc.Input.Tables = "data/schema_tables.csv"
	fc.Input.Columns = "data/schema_columns.csv"
	fc.Input.Schemas = []string{"public"}
	fc.Analysis.CentralLimit = 10
	fc.Analysis.RelatedDepth = 2
	fc.Oracle.Provider = ProviderOpenAI
	fc.Oracle.Model = "anthropic/claude-2"
	fc.Oracle.Temperature = 0.7
	fc.Oracle.Timeout = 60 * time.Second
	fc.Output.Dir = "outputs"
	return fc
}

const (
	ProviderOpenAI = "openai"
	ProviderLua    = "lua"
	ProviderNone   = "none"
)

type SourceConfig struct {
	TablesPath  string
	ColumnsPath string
	// nil, если метаданные читаются из csv
	DB     *db.Config
	Parser parse.Config
}

type OracleConfig struct {
	Provider string
	Timeout  time.Duration
	Script   string
	OpenAI   oracle.OpenAIConfig
}

type AppConfig struct {
	Source           SourceConfig
	StrictDuplicates bool
	CentralLimit     int
	RelatedDepth     int
	Oracle           OracleConfig
	OutputDir        string
	StorePath        string
}

func (fc FileConfig) Build() (*AppConfig, error) {
	patterns, err := fc.parsePatterns(fc.Input.Schemas)
	if err != nil {
		return nil, xerrors.Errorf("parse patterns failed: %w", err)
	}

	switch fc.Oracle.Provider {
	case ProviderOpenAI, ProviderNone:
	case ProviderLua:
		if fc.Oracle.Script == "" {
			return nil, xerrors.New("oracle.script is required for the lua provider")
		}
	default:
		return nil, xerrors.Errorf("unknown oracle provider: %q", fc.Oracle.Provider)
	}
	if fc.Oracle.Timeout <= 0 {
		return nil, xerrors.Errorf("oracle.timeout must be positive, got %s", fc.Oracle.Timeout)
	}
	if fc.Analysis.RelatedDepth < 1 {
		return nil, xerrors.Errorf("analysis.related_depth must be at least 1, got %d", fc.Analysis.RelatedDepth)
	}
	if fc.Output.Dir == "" {
		return nil, xerrors.New("output.dir is required")
	}

	source := SourceConfig{
		TablesPath:  fc.Input.Tables,
		ColumnsPath: fc.Input.Columns,
		Parser: parse.Config{
			Patterns: patterns,
		},
	}
	if fc.Input.DBConn != "" {
		source.DB = &db.Config{
			Conn: fc.Input.DBConn,
		}
	} else if source.TablesPath == "" || source.ColumnsPath == "" {
		return nil, xerrors.New("input.tables and input.columns are required without input.dbconn")
	}

	return &AppConfig{
		Source:           source,
		StrictDuplicates: fc.Builder.StrictDuplicates,
		CentralLimit:     fc.Analysis.CentralLimit,
		RelatedDepth:     fc.Analysis.RelatedDepth,
		Oracle: OracleConfig{
			Provider: fc.Oracle.Provider,
			Timeout:  fc.Oracle.Timeout,
			Script:   fc.Oracle.Script,
			OpenAI: oracle.OpenAIConfig{
				APIKey:      fc.APIKey,
				BaseURL:     fc.APIBase,
				Model:       fc.Oracle.Model,
				Temperature: fc.Oracle.Temperature,
				MaxTokens:   fc.Oracle.MaxTokens,
			},
		},
		OutputDir: fc.Output.Dir,
		StorePath: fc.Store.Path,
	}, nil
}

// ReadConfig reads the yaml file over the defaults. A missing file leaves the defaults.
func ReadConfig(confPath string) (*AppConfig, error) {
	fc := defaultFileConfig()
	file, err := os.ReadFile(confPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, xerrors.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(file, &fc); err != nil {
			return nil, xerrors.Errorf("parse config: %w", err)
		}
	}
	fc.APIKey = os.Getenv(envAPIKey)
	fc.APIBase = os.Getenv(envAPIBase)

	c, err := fc.Build()
	if err != nil {
		return nil, xerrors.Errorf("process config data: %w", err)
	}
	return c, nil
}

func (fc FileConfig) parsePatterns(
	patterns []string,
) ([]parse.Pattern, error) {
	res := make([]parse.Pattern, 0, len(patterns))
	for _, pattern := range patterns {
		parts := strings.Split(pattern, ".")

		var p parse.Pattern
		switch {
		case len(parts) == 1:
			p.Schema = parts[0]
		case len(parts) == 2:
			p.Schema = parts[0]
			p.Tables = parts[1]
		default:
			return nil, xerrors.Errorf("wrong pattern: %q", pattern)
		}
		res = append(res, p)
	}

	return res, nil
}

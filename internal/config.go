package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notex/internal/index"
	"github.com/starford/notex/internal/models"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	LLM      LLMConfig         `yaml:"llm"`
	Pipeline PipelineConfig    `yaml:"pipeline"`
	Index    IndexConfig       `yaml:"index"`
	HTTP     HTTPConfig        `yaml:"http"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	)
}

// LLMConfig points at an OpenAI-compatible chat-completions endpoint.
type LLMConfig struct {
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	Retries        int    `yaml:"retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Retries, validation.Required, validation.Min(1)),
		validation.Field(&c.TimeoutSeconds, validation.Min(0)),
	)
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}

// PipelineConfig holds the defaults for a processing run.
type PipelineConfig struct {
	Output     string   `yaml:"output"`
	Parallel   int      `yaml:"parallel"`
	Format     string   `yaml:"format"`
	Exclude    []string `yaml:"exclude"`
	Reorganize bool     `yaml:"reorganize"`
	CrossRef   bool     `yaml:"cross_ref"`
	DryRun     bool     `yaml:"dry_run"`
}

// Validate validates the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Output, validation.Required),
		validation.Field(&c.Parallel, validation.Required, validation.Min(1)),
		validation.Field(&c.Format, validation.By(func(v any) error {
			_, err := models.ParseOutputFormat(v.(string))
			return err
		})),
	)
}

// OutputFormat returns the parsed format; Validate has already vetted it.
func (c *PipelineConfig) OutputFormat() models.OutputFormat {
	f, err := models.ParseOutputFormat(c.Format)
	if err != nil {
		return models.FormatMarkdown
	}
	return f
}

// IndexConfig controls the SQLite catalog of the output tree.
type IndexConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Resolve returns the catalog path; empty means <output>/.notex/index.db.
func (c *IndexConfig) Resolve(output string) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(output, filepath.FromSlash(index.DefaultPath))
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AuthConfig holds authentication configuration for the browse API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a Config with the CLI defaults.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
		},
		LLM: LLMConfig{
			URL:            "http://localhost:8080/v1",
			APIKey:         "sk-no-key-required",
			Model:          "gpt-3.5-turbo",
			Retries:        3,
			TimeoutSeconds: 120,
		},
		Pipeline: PipelineConfig{
			Output:   "./compressed",
			Parallel: 8,
			Format:   string(models.FormatMarkdown),
		},
		Index: IndexConfig{
			Enabled: true,
		},
		HTTP: HTTPConfig{
			Port: 8080,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

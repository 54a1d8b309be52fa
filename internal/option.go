package internal

import (
	"io"
	"os"

	"github.com/starford/notex/internal/llm"
	"github.com/starford/notex/internal/progress"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	gateway  llm.Gateway
	stdout   io.Writer
	stderr   io.Writer
	progress progress.Factory
}

func newApplication(opts []Option) *application {
	app := &application{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithGateway replaces the HTTP model client built from the llm config.
func WithGateway(gw llm.Gateway) Option {
	return func(a *application) {
		a.gateway = gw
	}
}

// WithStdout sets where user-facing output (plan, written files) goes.
func WithStdout(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}

// WithStderr sets where logs and progress bars go.
func WithStderr(w io.Writer) Option {
	return func(a *application) {
		a.stderr = w
	}
}

// WithProgress overrides the progress tracker factory.
func WithProgress(f progress.Factory) Option {
	return func(a *application) {
		a.progress = f
	}
}

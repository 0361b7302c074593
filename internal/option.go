package internal

import (
	"io"

	"github.com/starford/edital/internal/store"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	gateway store.Gateway
	logOut  io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithGateway uses g instead of opening the configured store.
func WithGateway(g store.Gateway) Option {
	return func(a *application) {
		a.gateway = g
	}
}

// WithLogOutput sends logs to w instead of stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	return app, nil
}

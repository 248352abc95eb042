package gen

import (
	"go/token"
	"log/slog"
	"runtime"
)

// DefaultHeader is the first line of every generated file.
const DefaultHeader = "Code generated by criteriagen. DO NOT EDIT."

// Config holds the code generation settings.
type Config struct {
	// Package is the name of the generated Go package. It defaults to the
	// base name of Target.
	Package string `yaml:"package"`
	// Target is the output directory.
	Target string `yaml:"target"`
	// Header is the comment written at the top of each generated file.
	Header string `yaml:"header"`
	// Workers bounds the number of files rendered concurrently.
	Workers int `yaml:"workers"`
	// JSONTags adds a json tag, holding the attribute name, to every field.
	JSONTags bool `yaml:"json_tags"`
	// Registry adds a file with a Register function registering every
	// generated type in a schema.Registry.
	Registry bool `yaml:"registry"`

	logger *slog.Logger
}

// Option configures code generation.
type Option func(*Config) error

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithPackage sets the output package name.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if !token.IsIdentifier(pkg) {
			return NewConfigError("Package", pkg, "package must be a valid Go identifier")
		}
		c.Package = pkg
		return nil
	}
}

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithWorkers sets the number of parallel workers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// WithJSONTags enables json struct tags.
func WithJSONTags(on bool) Option {
	return func(c *Config) error {
		c.JSONTags = on
		return nil
	}
}

// WithRegistry enables the registry file.
func WithRegistry(on bool) Option {
	return func(c *Config) error {
		c.Registry = on
		return nil
	}
}

// WithLogger sets the logger reporting generated files.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		c.logger = l
		return nil
	}
}

func (c *Config) defaults() {
	if c.Header == "" {
		c.Header = DefaultHeader
	}
	if c.Workers < 1 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
}

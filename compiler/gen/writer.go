package gen

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"github.com/syssam/criteria/compiler/load"
)

// Generator renders record types for table definitions.
type Generator struct {
	cfg Config

	// Metrics for performance monitoring
	mu      sync.Mutex
	metrics Metrics
}

// Metrics tracks generation results.
type Metrics struct {
	FilesGenerated int
	TotalBytes     int64
}

// File is a rendered source file.
type File struct {
	Name   string
	Source []byte
}

// New creates a generator.
func New(opts ...Option) (*Generator, error) {
	g := &Generator{}
	for _, opt := range opts {
		if err := opt(&g.cfg); err != nil {
			return nil, err
		}
	}
	if g.cfg.Package == "" {
		if g.cfg.Target == "" {
			return nil, NewConfigError("Package", nil, "either a package or a target directory is required")
		}
		g.cfg.Package = packageName(g.cfg.Target)
	}
	g.cfg.defaults()
	return g, nil
}

// Config returns the resolved generator configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Metrics returns the generation metrics.
func (g *Generator) Metrics() Metrics {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.metrics
}

// fileTask represents a single file generation task.
type fileTask struct {
	name   string
	render func() (*jen.File, error)
}

func (g *Generator) tasks(tables []*load.Table) ([]fileTask, error) {
	records, err := Records(tables)
	if err != nil {
		return nil, err
	}
	files := make([]fileTask, 0, len(records)+1)
	for _, r := range records {
		files = append(files, fileTask{
			name:   r.File(),
			render: func() (*jen.File, error) { return g.recordFile(r) },
		})
	}
	if g.cfg.Registry && len(records) > 0 {
		files = append(files, fileTask{
			name:   RegistryFile,
			render: func() (*jen.File, error) { return g.registryFile(records), nil },
		})
	}
	return files, nil
}

// Render renders all files in memory, in table order.
func (g *Generator) Render(ctx context.Context, tables []*load.Table) ([]*File, error) {
	tasks, err := g.tasks(tables)
	if err != nil {
		return nil, err
	}
	out := make([]*File, len(tasks))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Workers)
	for i, f := range tasks {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			src, err := g.renderFile(f, f.name)
			if err != nil {
				return err
			}
			out[i] = &File{Name: f.name, Source: src}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Generate renders all files and writes them to the target directory.
func (g *Generator) Generate(ctx context.Context, tables []*load.Table) error {
	if g.cfg.Target == "" {
		return NewConfigError("Target", nil, "missing target directory in config")
	}
	tasks, err := g.tasks(tables)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(g.cfg.Target, 0o755); err != nil {
		return NewGenerationError("write", g.cfg.Target, "create output directory", err)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Workers)
	for _, f := range tasks {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return g.generateFile(f)
			}
		})
	}
	return eg.Wait()
}

// renderFile renders a file and formats it with goimports.
func (g *Generator) renderFile(f fileTask, path string) ([]byte, error) {
	jf, err := f.render()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jf.Render(&buf); err != nil {
		return nil, NewGenerationError("render", f.name, "", err)
	}
	formatted, err := imports.Process(path, buf.Bytes(), nil)
	if err != nil {
		return buf.Bytes(), NewGenerationError("format", f.name, "", err)
	}
	return formatted, nil
}

// generateFile generates a single file.
func (g *Generator) generateFile(f fileTask) error {
	fullPath := filepath.Join(g.cfg.Target, f.name)
	src, err := g.renderFile(f, fullPath)
	if err != nil {
		if src != nil {
			// Keep the unformatted output for debugging.
			debugPath := fullPath + ".error"
			_ = os.WriteFile(debugPath, src, 0o644)
			return fmt.Errorf("%w (unformatted written to %s)", err, debugPath)
		}
		return err
	}
	if err := os.WriteFile(fullPath, src, 0o644); err != nil {
		return NewGenerationError("write", f.name, "", err)
	}

	g.mu.Lock()
	g.metrics.FilesGenerated++
	g.metrics.TotalBytes += int64(len(src))
	g.mu.Unlock()

	g.cfg.logger.Debug("file generated", slog.String("file", fullPath), slog.Int("bytes", len(src)))
	return nil
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/criteria/compiler/gen"
	"github.com/syssam/criteria/compiler/load"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	logger  *slog.Logger
}

// SourceOptions selects where table definitions come from.
type SourceOptions struct {
	Tables  string   // table description file
	Driver  string   // database/sql driver name
	DSN     string   // data source name
	Dialect string   // dialect override; defaults to the driver's dialect
	Schema  string   // schema to inspect
	Names   []string // tables to inspect
}

func (o *SourceOptions) register(cmd *cobra.Command, withFile bool) {
	if withFile {
		cmd.Flags().StringVar(&o.Tables, "tables", "", "table description file (YAML)")
	}
	cmd.Flags().StringVar(&o.Driver, "driver", "", "database/sql driver (sqlite, pgx, postgres, mysql)")
	cmd.Flags().StringVar(&o.DSN, "dsn", "", "data source name")
	cmd.Flags().StringVar(&o.Dialect, "dialect", "", "SQL dialect, defaults to the driver's")
	cmd.Flags().StringVar(&o.Schema, "schema", "", "schema to inspect")
	cmd.Flags().StringSliceVar(&o.Names, "table", nil, "tables to inspect (repeatable)")
}

// load reads the table definitions from the file or the database.
func (o *SourceOptions) load(ctx context.Context, logger *slog.Logger) ([]*load.Table, error) {
	if o.Tables != "" {
		if o.DSN != "" {
			return nil, fmt.Errorf("--tables and --dsn are mutually exclusive")
		}
		return load.LoadFile(o.Tables)
	}
	if o.Driver == "" || o.DSN == "" {
		return nil, fmt.Errorf("either --tables or both --driver and --dsn are required")
	}
	db, err := sql.Open(o.Driver, o.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.Driver, err)
	}
	defer db.Close()
	name := o.Dialect
	if name == "" {
		name = o.Driver
	}
	tables, err := load.Inspect(ctx, db, name, load.InspectOptions{Schema: o.Schema, Tables: o.Names})
	if err != nil {
		return nil, err
	}
	logger.Debug("schema inspected", slog.String("driver", o.Driver), slog.Int("tables", len(tables)))
	return tables, nil
}

// NewRootCommand creates the root command of criteriagen.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "criteriagen",
		Short:         "Generate criteria record types",
		Long:          "Generate Go record types, with column tags and table metadata, from table descriptions or live databases.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewGenerateCommand(opts))
	return cmd
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		src    SourceOptions
		output string
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the table description of a live database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := src.load(cmd.Context(), rootOpts.logger)
			if err != nil {
				return err
			}
			data, err := load.MarshalTables(tables)
			if err != nil {
				return fmt.Errorf("encode tables: %w", err)
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			rootOpts.logger.Info("tables written", slog.String("file", output), slog.Int("tables", len(tables)))
			return nil
		},
	}
	src.register(cmd, false)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, defaults to stdout")
	return cmd
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		src      SourceOptions
		target   string
		pkg      string
		header   string
		workers  int
		jsonTags bool
		registry bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate record types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []gen.Option{
				gen.WithTarget(target),
				gen.WithJSONTags(jsonTags),
				gen.WithRegistry(registry),
				gen.WithLogger(rootOpts.logger),
			}
			if pkg != "" {
				opts = append(opts, gen.WithPackage(pkg))
			}
			if header != "" {
				opts = append(opts, gen.WithHeader(header))
			}
			if workers > 0 {
				opts = append(opts, gen.WithWorkers(workers))
			}
			g, err := gen.New(opts...)
			if err != nil {
				return err
			}
			tables, err := src.load(cmd.Context(), rootOpts.logger)
			if err != nil {
				return err
			}
			if err := g.Generate(cmd.Context(), tables); err != nil {
				return err
			}
			m := g.Metrics()
			rootOpts.logger.Info("records generated",
				slog.String("target", target),
				slog.String("package", g.Config().Package),
				slog.Int("files", m.FilesGenerated),
				slog.Int64("bytes", m.TotalBytes),
				slog.String("tables", tableNames(tables)),
			)
			return nil
		},
	}
	src.register(cmd, true)
	cmd.Flags().StringVar(&target, "target", "", "output directory")
	cmd.Flags().StringVar(&pkg, "package", "", "package name, defaults to the target directory name")
	cmd.Flags().StringVar(&header, "header", "", "file header comment")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers, defaults to GOMAXPROCS")
	cmd.Flags().BoolVar(&jsonTags, "json-tags", false, "add json struct tags")
	cmd.Flags().BoolVar(&registry, "registry", false, "generate a Register function")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func tableNames(tables []*load.Table) string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return strings.Join(names, ",")
}

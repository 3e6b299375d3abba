package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sqliteadapter "github.com/atvirokodosprendimai/gprcatalog/internal/adapters/db/sqlite"
	httpadapter "github.com/atvirokodosprendimai/gprcatalog/internal/adapters/http"
	metricsadapter "github.com/atvirokodosprendimai/gprcatalog/internal/adapters/metrics"
	rpcadapter "github.com/atvirokodosprendimai/gprcatalog/internal/adapters/rpcjson"
	"github.com/atvirokodosprendimai/gprcatalog/internal/application"
	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/atvirokodosprendimai/gprcatalog/internal/logging"
	"github.com/atvirokodosprendimai/gprcatalog/internal/settings"
	"github.com/atvirokodosprendimai/gprcatalog/internal/simconfig"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "gprcatalog",
		Usage: "GPR simulation catalog server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			dbCommand(),
			remoteCommand(),
			recordsCommand(),
			importCommand(),
			statsCommand(),
			searchCommand(),
			healthCommand(),
			configCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP and JSON-RPC servers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "settings YAML file (default ./gprcatalog.yaml when present)"},
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database path"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := settings.Load(c.String("config"))
			if err != nil {
				return err
			}
			overrides := map[string]*string{
				"addr":       &cfg.HTTPAddr,
				"rpc-socket": &cfg.RPCSocket,
				"db-path":    &cfg.DBPath,
				"log-level":  &cfg.LogLevel,
				"log-format": &cfg.LogFormat,
			}
			for flag, dst := range overrides {
				if c.IsSet(flag) {
					*dst = c.String(flag)
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logging.Setup(cfg.LogLevel, cfg.LogFormat)
			return runServer(ctx, cfg)
		},
	}
}

func runServer(ctx context.Context, cfg settings.Settings) error {
	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB(db)
	version, err := sqliteadapter.RunMigrations(ctx, db)
	if err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DBPath, "schema_version", version)

	var opts []application.Option
	routerOpts := httpadapter.Options{MaxUploadBytes: cfg.MaxUploadBytes}
	if cfg.MetricsEnabled {
		recorder := metricsadapter.NewRecorder()
		opts = append(opts, application.WithMetrics(recorder))
		routerOpts.Metrics = recorder.Handler()
	}

	repo := sqliteadapter.NewCatalogRepository(db)
	service := application.NewCatalogService(repo, opts...)

	router := httpadapter.NewRouter(service, routerOpts)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	if cfg.RPCSocket != "" {
		rpcSrv, err := rpcadapter.Start(cfg.RPCSocket, service)
		if err != nil {
			return err
		}
		defer func() {
			_ = rpcSrv.Close()
		}()
		slog.Info("json-rpc listening", "socket", "unix://"+cfg.RPCSocket)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func dbCommand() *cli.Command {
	dbFlags := []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "settings YAML file"},
		&cli.StringFlag{Name: "db-path", Usage: "SQLite database path"},
	}
	return &cli.Command{
		Name:  "db",
		Usage: "Database maintenance",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Apply pending schema migrations",
				Flags: dbFlags,
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDatabase(c, func(path string, db *gorm.DB) error {
						version, err := sqliteadapter.RunMigrations(ctx, db)
						if err != nil {
							return err
						}
						fmt.Printf("%s at schema version %d\n", path, version)
						return nil
					})
				},
			},
			{
				Name:  "reset",
				Usage: "Drop every catalog table and recreate the schema",
				Flags: append(dbFlags, &cli.BoolFlag{Name: "yes", Usage: "skip the confirmation prompt"}),
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDatabase(c, func(path string, db *gorm.DB) error {
						if !c.Bool("yes") && !confirm(fmt.Sprintf("Delete every record in %s?", path)) {
							return errors.New("reset cancelled")
						}
						version, err := sqliteadapter.ResetDatabase(ctx, db)
						if err != nil {
							return err
						}
						slog.Info("database reset", "path", path, "schema_version", version)
						fmt.Printf("%s reset to schema version %d\n", path, version)
						return nil
					})
				},
			},
		},
	}
}

// withDatabase opens the database named by the --config and --db-path flags.
func withDatabase(c *cli.Command, fn func(path string, db *gorm.DB) error) error {
	cfg, err := settings.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("db-path") {
		cfg.DBPath = c.String("db-path")
	}
	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB(db)
	return fn(cfg.DBPath, db)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func remoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "remote",
		Usage: "Choose how client commands reach the server",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the current transport",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					printKV([][2]string{{"transport", cfg.Transport}, {"server", cfg.Server}, {"socket", cfg.Socket}})
					return nil
				},
			},
			{
				Name:  "set",
				Usage: "Store the transport in ~/.gprcatalog/config.json",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Value: "uds", Usage: "uds or http"},
					&cli.StringFlag{Name: "server", Value: defaultServer},
					&cli.StringFlag{Name: "socket", Value: defaultSocket},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{Transport: c.String("transport"), Server: c.String("server"), Socket: c.String("socket")}
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("using %s\n", cfg.Transport)
					return nil
				},
			},
		},
	}
}

func kindFlag() cli.Flag {
	return &cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Required: true, Usage: "entity kind, e.g. soil-types or object_portraits"}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}
}

func fieldFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "data", Usage: "JSON object of fields"},
		&cli.StringFlag{Name: "file", Usage: "read the JSON object of fields from a file"},
		&cli.StringSliceFlag{Name: "set", Usage: "field=value, repeatable; values are parsed as JSON when possible"},
	}
}

func recordsCommand() *cli.Command {
	return &cli.Command{
		Name:  "records",
		Usage: "Catalog record commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List records of one kind",
				Flags: []cli.Flag{
					kindFlag(),
					&cli.IntFlag{Name: "skip"},
					&cli.IntFlag{Name: "limit", Value: 100},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "search"},
					&cli.UintFlag{Name: "parent-id", Usage: "materials: children of this material"},
					&cli.BoolFlag{Name: "all", Usage: "materials: include child materials"},
					&cli.StringFlag{Name: "shape"},
					&cli.StringFlag{Name: "manufacturer"},
					&cli.FloatFlag{Name: "min-frequency"},
					&cli.FloatFlag{Name: "max-frequency"},
					&cli.StringFlag{Name: "waveform"},
					&cli.UintFlag{Name: "soil-type-id"},
					&cli.FloatFlag{Name: "min-angle"},
					&cli.FloatFlag{Name: "max-angle"},
					&cli.UintFlag{Name: "target-type-id"},
					&cli.UintFlag{Name: "antenna-id"},
					&cli.UintFlag{Name: "pulse-id"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, kind, err := clientAndKind(c)
					if err != nil {
						return err
					}
					var out []map[string]any
					if err := doList(ctx, cfg, kind, listFilter(c), c.Int("skip"), c.Int("limit"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printRecords(kind, out)
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Show one record",
				Flags: []cli.Flag{kindFlag(), &cli.UintFlag{Name: "id", Required: true}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, kind, err := clientAndKind(c)
					if err != nil {
						return err
					}
					var out map[string]any
					if err := doGet(ctx, cfg, kind, c.Uint("id"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printRecord(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create a record",
				Flags: append([]cli.Flag{kindFlag(), jsonFlag()}, fieldFlags()...),
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, kind, err := clientAndKind(c)
					if err != nil {
						return err
					}
					fields, err := readFields(c)
					if err != nil {
						return err
					}
					var out map[string]any
					if err := doCreate(ctx, cfg, kind, fields, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printRecord(out)
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "Merge fields into a record",
				Flags: append([]cli.Flag{kindFlag(), &cli.UintFlag{Name: "id", Required: true}, jsonFlag()}, fieldFlags()...),
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, kind, err := clientAndKind(c)
					if err != nil {
						return err
					}
					fields, err := readFields(c)
					if err != nil {
						return err
					}
					var out map[string]any
					if err := doUpdate(ctx, cfg, kind, c.Uint("id"), fields, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printRecord(out)
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a record that nothing references",
				Flags: []cli.Flag{kindFlag(), &cli.UintFlag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, kind, err := clientAndKind(c)
					if err != nil {
						return err
					}
					if err := doDelete(ctx, cfg, kind, c.Uint("id")); err != nil {
						return err
					}
					fmt.Printf("deleted %s %d\n", kind.Label(), c.Uint("id"))
					return nil
				},
			},
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Bulk ingestion",
		Commands: []*cli.Command{
			{
				Name:      "bulk",
				Usage:     "Upload a JSON batch keyed by collection name",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "atomic", Usage: "roll back every kind when one record fails"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					data, err := readArgFile(c)
					if err != nil {
						return err
					}
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out application.BatchResult
					if err := doBulkUpload(ctx, cfg, data, c.Bool("atomic"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printBatchResult(out)
					return nil
				},
			},
			{
				Name:      "csv",
				Usage:     "Import CSV rows into one kind",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{kindFlag(), jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					data, err := readArgFile(c)
					if err != nil {
						return err
					}
					cfg, kind, err := clientAndKind(c)
					if err != nil {
						return err
					}
					var out application.RowImportResult
					if err := doImportCSV(ctx, cfg, kind, data, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printRowImport(out)
					return nil
				},
			},
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Record counts per kind",
		Flags: []cli.Flag{jsonFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out application.Statistics
			if err := doStatistics(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printCounts(out.Counts, out.Total)
			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search soil types, materials and target types",
		ArgsUsage: "QUERY",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.Join(c.Args().Slice(), " ")
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out application.SearchResult
			if err := doSearch(ctx, cfg, query, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printSearch(out)
			return nil
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check the server and its database",
		Flags: []cli.Flag{jsonFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out application.Health
			if err := doHealth(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printKV([][2]string{{"status", out.Status}, {"database", out.Database}})
			printCounts(out.TableCounts, sumCounts(out.TableCounts))
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Simulation configuration documents",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Validate a JSON or YAML simulation document",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Usage: "json or yaml (default from the file extension)"},
					&cli.BoolFlag{Name: "resolve", Usage: "check catalog ids against the server"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					path := c.Args().First()
					if path == "" {
						return errors.New("config file argument is required")
					}
					format := simconfig.FormatFromPath(path)
					if c.IsSet("format") {
						format = simconfig.ParseFormat(c.String("format"))
					}

					var out application.ConfigValidation
					if c.Bool("resolve") {
						data, err := os.ReadFile(path)
						if err != nil {
							return err
						}
						cfg, err := loadConfig()
						if err != nil {
							return err
						}
						if err := doValidateConfig(ctx, cfg, data, format, true, &out); err != nil {
							return err
						}
					} else {
						var (
							doc simconfig.Document
							err error
						)
						if c.IsSet("format") {
							var data []byte
							if data, err = os.ReadFile(path); err != nil {
								return err
							}
							doc, err = simconfig.Parse(data, format)
						} else {
							doc, err = simconfig.LoadFile(path)
						}
						if err != nil {
							return err
						}
						out = application.ConfigValidation{Valid: true, Message: "configuration is valid", Document: doc}
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					fmt.Println(out.Message)
					return nil
				},
			},
			{
				Name:  "template",
				Usage: "Write an example simulation document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Value: "json", Usage: "json or yaml"},
					&cli.StringFlag{Name: "out", Usage: "output file (default stdout)"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					data, err := simconfig.Encode(simconfig.Template(), simconfig.ParseFormat(c.String("format")))
					if err != nil {
						return err
					}
					if out := c.String("out"); out != "" {
						if err := os.WriteFile(out, data, 0o644); err != nil {
							return err
						}
						fmt.Printf("wrote %s\n", out)
						return nil
					}
					_, err = os.Stdout.Write(data)
					return err
				},
			},
		},
	}
}

func clientAndKind(c *cli.Command) (cliConfig, domain.Kind, error) {
	kind, err := domain.ParseKind(c.String("kind"))
	if err != nil {
		return cliConfig{}, 0, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return cliConfig{}, 0, err
	}
	return cfg, kind, nil
}

func listFilter(c *cli.Command) domain.ListFilter {
	f := domain.ListFilter{
		Name:         c.String("name"),
		Search:       c.String("search"),
		AllMaterials: c.Bool("all"),
		Shape:        c.String("shape"),
		Manufacturer: c.String("manufacturer"),
		Waveform:     c.String("waveform"),
	}
	optUint := func(name string) *uint {
		if !c.IsSet(name) {
			return nil
		}
		v := c.Uint(name)
		return &v
	}
	optFloat := func(name string) *float64 {
		if !c.IsSet(name) {
			return nil
		}
		v := c.Float(name)
		return &v
	}
	f.ParentID = optUint("parent-id")
	f.SoilTypeID = optUint("soil-type-id")
	f.TargetTypeID = optUint("target-type-id")
	f.AntennaID = optUint("antenna-id")
	f.PulseID = optUint("pulse-id")
	f.MinFrequency = optFloat("min-frequency")
	f.MaxFrequency = optFloat("max-frequency")
	f.MinAngle = optFloat("min-angle")
	f.MaxAngle = optFloat("max-angle")
	return f
}

func readFields(c *cli.Command) (domain.Fields, error) {
	var raw []byte
	switch {
	case c.String("data") != "":
		raw = []byte(c.String("data"))
	case c.String("file") != "":
		data, err := os.ReadFile(c.String("file"))
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return buildFields(raw, c.StringSlice("set"))
}

// buildFields merges a JSON object with field=value assignments; assignments
// win.
func buildFields(raw []byte, assignments []string) (domain.Fields, error) {
	fields := domain.Fields{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("fields must be a JSON object: %w", err)
		}
	}
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want field=value", a)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
		fields[key] = parsed
	}
	if len(fields) == 0 {
		return nil, errors.New("no fields given; use --data, --file or --set")
	}
	return fields, nil
}

func readArgFile(c *cli.Command) ([]byte, error) {
	path := c.Args().First()
	if path == "" {
		return nil, errors.New("file argument is required")
	}
	return os.ReadFile(path)
}

func sumCounts(counts map[domain.Kind]int64) int64 {
	var total int64
	for _, n := range counts {
		total += n
	}
	return total
}

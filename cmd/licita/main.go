// Package main is the licita CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/hyperjump/licita/internal/cli"
	"github.com/hyperjump/licita/internal/config"
	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/internal/recommend"
	"github.com/hyperjump/licita/internal/server"
	"github.com/hyperjump/licita/internal/watcher"
	"github.com/hyperjump/licita/pkg/utils"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/licita/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// reorderArgs moves any flags (and their values) that appear after the positional arguments
// to the front so that flag.Parse() sees them. Go's flag package stops at the first
// non-flag argument, so "licita recommend t1 -top-n 3" would otherwise ignore -top-n.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "train":
		runTrain()
	case "recommend":
		runRecommend()
	case "import":
		runImport()
	case "score":
		runScore()
	case "evaluate":
		runEvaluate()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("licita version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// commonFlags are shared by every subcommand that touches storage.
type commonFlags struct {
	configPath *string
	debug      *bool
	output     *string
}

func newFlagSet(name string) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return fs, commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
		output:     fs.String("output", "text", "output format: text or json"),
	}
}

func (f commonFlags) format() cli.OutputFormat {
	format, err := cli.ParseFormat(*f.output)
	if err != nil {
		fatalf("%v\n", err)
	}
	return format
}

// setup loads config, creates the logger and initializes all components.
func (f commonFlags) setup() (*Components, *zap.Logger) {
	cfg, resolved, err := loadConfig(*f.configPath)
	if err != nil {
		fatalf("Failed to load config: %v\n", err)
	}
	debugMode := cfg.Debug || *f.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v\n", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return components, logger
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func runServer() {
	fs, flags := newFlagSet("server")
	_ = fs.Parse(os.Args[2:])

	c, logger := flags.setup()
	defer logger.Sync()
	defer c.Close()
	cfg := c.Config

	if _, err := c.Builder.Trigger("startup"); err != nil {
		logger.Warn("initial rebuild not started", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watchSvc = watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(ctx context.Context, paths []string) {
				importAndRebuild(ctx, c, logger, paths)
			},
			watcher.WithLogger(logger),
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		go watchSvc.Sync(watchCtx)
	}

	srv := server.NewServer(c.Engine, c.Storage, cfg, logger,
		server.WithKeywordIndex(c.KeywordIndex),
		server.WithScorer(c.Scorer),
		server.WithMetrics(c.Metrics),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	if watchSvc != nil {
		watchSvc.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// importAndRebuild imports changed catalog files and requests a rebuild when any record was written.
func importAndRebuild(ctx context.Context, c *Components, logger *zap.Logger, paths []string) {
	res, err := c.Importer.ImportFiles(ctx, paths)
	if err != nil {
		logger.Warn("catalog import failed", zap.Strings("paths", paths), zap.Error(err))
	}
	if res == nil {
		return
	}
	logger.Info("catalog imported",
		zap.Int("files", res.Files),
		zap.Int("suppliers", res.Suppliers),
		zap.Int("tenders", res.Tenders),
		zap.Int("proposals", res.Proposals))
	if res.Suppliers == 0 || !c.Config.Recommender.RebuildOnChangeOrDefault() {
		return
	}
	if _, err := c.Builder.Trigger("watch"); err != nil {
		logger.Warn("rebuild after import not started", zap.Error(err))
	}
}

func runRecommend() {
	fs, flags := newFlagSet("recommend")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage when server is not running)")
	topN := fs.Int("top-n", 0, "number of suppliers to return (0 = configured default)")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: licita recommend [flags] <tender_id>")
		os.Exit(1)
	}
	tenderID := fs.Arg(0)
	format := flags.format()

	if *serverURL != "" {
		resp, err := recommendViaHTTP(*serverURL, tenderID, *topN)
		if err != nil {
			fatalf("Recommend failed: %v\n", err)
		}
		if err := cli.WriteRecommendations(os.Stdout, resp, format); err != nil {
			fatalf("Output failed: %v\n", err)
		}
		return
	}

	c, logger := flags.setup()
	defer logger.Sync()
	defer c.Close()
	ctx := context.Background()

	n := *topN
	if n <= 0 {
		n = c.Config.Recommender.DefaultTopN
	}
	tender, err := c.Storage.GetTender(ctx, tenderID)
	if err != nil {
		fatalf("Tender %s: %v\n", tenderID, err)
	}
	suppliers, err := c.Storage.ListSuppliers(ctx, false)
	if err != nil {
		fatalf("List suppliers failed: %v\n", err)
	}
	if err := buildIfNeeded(ctx, c, suppliers); err != nil {
		fatalf("Build failed: %v\n", err)
	}
	start := time.Now()
	result, err := c.Engine.Recommend(ctx, tender.Query(), models.Profiles(suppliers), n)
	if err != nil {
		fatalf("Recommend failed: %v\n", err)
	}
	resp := recommend.Enrich(tender, result, suppliers, time.Since(start))
	if err := cli.WriteRecommendations(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v\n", err)
	}
}

// buildIfNeeded builds the corpus index from every stored supplier when none is loaded yet,
// matching what a rebuild from storage fits on. A one-shot command has no earlier rebuild to
// rely on, whatever on_demand_build says.
func buildIfNeeded(ctx context.Context, c *Components, suppliers []*models.Supplier) error {
	if c.Builder.IsReady() {
		return nil
	}
	_, err := c.Builder.Build(ctx, models.Profiles(suppliers))
	return err
}

func runTrain() {
	fs, flags := newFlagSet("train")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = build directly from storage)")
	wait := fs.Bool("wait", true, "wait for the rebuild to finish")
	_ = fs.Parse(os.Args[2:])
	format := flags.format()

	if *serverURL != "" {
		ticket, err := trainViaHTTP(*serverURL)
		if err != nil {
			fatalf("Train failed: %v\n", err)
		}
		if !*wait {
			writeOrDie(format, ticket, func() {
				fmt.Printf("Rebuild requested: %s (coalesced: %t)\n", ticket.Token, ticket.Coalesced)
			})
			return
		}
		job, err := waitForJob(*serverURL, ticket.Token, 500*time.Millisecond)
		if err != nil {
			fatalf("Train failed: %v\n", err)
		}
		writeOrDie(format, job, func() {
			fmt.Printf("Rebuild %s: %s", job.Token, job.State)
			if job.Error != "" {
				fmt.Printf(" (%s)", job.Error)
			}
			fmt.Println()
		})
		return
	}

	c, logger := flags.setup()
	defer logger.Sync()
	defer c.Close()
	ticket, err := c.Builder.Trigger("cli")
	if err != nil {
		fatalf("Train failed: %v\n", err)
	}
	if err := c.Builder.Wait(context.Background()); err != nil {
		fatalf("Train failed: %v\n", err)
	}
	job, _ := c.Builder.Job(ticket.Token)
	status := c.Builder.Status()
	writeOrDie(format, status, func() {
		fmt.Printf("Rebuild %s: %s\n", job.Token, job.State)
		fmt.Printf("strategy:    %s\n", status.Strategy)
		fmt.Printf("suppliers:   %d\n", status.Suppliers)
		fmt.Printf("generation:  %d\n", status.Generation)
		if status.LastError != "" {
			fmt.Printf("last_error:  %s\n", status.LastError)
		}
	})
}

func writeOrDie(format cli.OutputFormat, v interface{}, text func()) {
	if format == cli.OutputJSON {
		if err := cli.WriteJSON(os.Stdout, v); err != nil {
			fatalf("Output failed: %v\n", err)
		}
		return
	}
	text()
}

func runImport() {
	fs, flags := newFlagSet("import")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: licita import [flags] <file>...")
		os.Exit(1)
	}
	format := flags.format()

	c, logger := flags.setup()
	defer logger.Sync()
	defer c.Close()

	res, err := c.Importer.ImportFiles(context.Background(), fs.Args())
	if res != nil {
		if werr := cli.WriteImportResult(os.Stdout, res, format); werr != nil {
			fatalf("Output failed: %v\n", werr)
		}
	}
	if err != nil {
		c.Close()
		fatalf("Import failed: %v\n", err)
	}
}

func runScore() {
	fs, flags := newFlagSet("score")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: licita score [flags] <tender_id>")
		os.Exit(1)
	}
	tenderID := fs.Arg(0)
	format := flags.format()

	c, logger := flags.setup()
	defer logger.Sync()
	defer c.Close()
	ctx := context.Background()

	report, err := c.Scorer.ScoreTender(ctx, tenderID)
	if err != nil {
		fatalf("Score failed: %v\n", err)
	}
	proposals, err := c.Storage.ListProposalsByTender(ctx, tenderID)
	if err != nil {
		fatalf("List proposals failed: %v\n", err)
	}
	sortByScore(proposals)
	if err := cli.WriteScores(os.Stdout, report, proposals, format); err != nil {
		fatalf("Output failed: %v\n", err)
	}
}

// sortByScore orders proposals by ai_score descending; unscored proposals go last.
func sortByScore(proposals []*models.Proposal) {
	sort.SliceStable(proposals, func(i, j int) bool {
		a, b := proposals[i].AIScore, proposals[j].AIScore
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}

// evalFile is the on-disk shape of evaluation cases.
type evalFile struct {
	Cases []recommend.EvalCase `yaml:"cases"`
}

func loadEvalCases(path string) ([]recommend.EvalCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases: %w", err)
	}
	var f evalFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse cases: %w", err)
	}
	if len(f.Cases) == 0 {
		return nil, fmt.Errorf("no cases in %s", path)
	}
	return f.Cases, nil
}

func runEvaluate() {
	fs, flags := newFlagSet("evaluate")
	casesPath := fs.String("cases", "", "YAML file with evaluation cases")
	k := fs.Int("k", 10, "cutoff for precision, recall and F1")
	_ = fs.Parse(os.Args[2:])
	if *casesPath == "" {
		fmt.Println("Usage: licita evaluate --cases <file.yaml> [--k 10]")
		os.Exit(1)
	}
	format := flags.format()
	cases, err := loadEvalCases(*casesPath)
	if err != nil {
		fatalf("%v\n", err)
	}

	c, logger := flags.setup()
	defer logger.Sync()
	defer c.Close()
	ctx := context.Background()

	suppliers, err := c.Storage.ListSuppliers(ctx, false)
	if err != nil {
		fatalf("List suppliers failed: %v\n", err)
	}
	if err := buildIfNeeded(ctx, c, suppliers); err != nil {
		fatalf("Build failed: %v\n", err)
	}
	report, err := recommend.Evaluate(ctx, c.Engine, cases, models.Profiles(suppliers), *k)
	if err != nil {
		fatalf("Evaluate failed: %v\n", err)
	}
	if err := cli.WriteEvalReport(os.Stdout, report, format); err != nil {
		fatalf("Output failed: %v\n", err)
	}
}

func runStatus() {
	fs, flags := newFlagSet("status")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	_ = fs.Parse(os.Args[2:])
	format := flags.format()

	var status *server.StatusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fatalf("Status failed: %v\n", err)
		}
		status = res
	} else {
		c, logger := flags.setup()
		defer logger.Sync()
		defer c.Close()
		res, err := server.CollectStatus(context.Background(), c.Storage, c.Builder, c.Config)
		if err != nil {
			fatalf("Status failed: %v\n", err)
		}
		status = res
	}

	writeOrDie(format, status, func() { printStatus(status) })
}

func printStatus(status *server.StatusResponse) {
	fmt.Printf("tenders:            %d\n", status.Tenders)
	fmt.Printf("suppliers:          %d   # %d active\n", status.Suppliers, status.ActiveSuppliers)
	fmt.Printf("proposals:          %d\n", status.Proposals)
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage_bytes:   %d   # database + indices on disk\n", *status.DiskUsageBytes)
	}
	rec := status.Recommender
	fmt.Println()
	fmt.Println("# recommender")
	fmt.Printf("strategy:           %s\n", rec.Strategy)
	fmt.Printf("ready:              %t\n", rec.Ready)
	if rec.Ready {
		fmt.Printf("generation:         %d\n", rec.Generation)
		fmt.Printf("indexed_suppliers:  %d\n", rec.Suppliers)
		if rec.Vocabulary > 0 {
			fmt.Printf("vocabulary:         %d\n", rec.Vocabulary)
		}
	}
	if rec.InProgress {
		fmt.Printf("rebuilding:         %t\n", rec.InProgress)
	}
	if rec.LastError != "" {
		fmt.Printf("last_error:         %s\n", rec.LastError)
	}
	if status.Config != nil {
		fmt.Println()
		fmt.Println("# configuration")
		fmt.Printf("default_top_n:      %d\n", status.Config.DefaultTopN)
		fmt.Printf("max_top_n:          %d\n", status.Config.MaxTopN)
		fmt.Printf("on_demand_build:    %t\n", status.Config.OnDemandBuild)
		if status.Config.DatabasePath != "" {
			fmt.Printf("database_path:      %s\n", status.Config.DatabasePath)
		}
		for _, d := range status.Config.Watch {
			fmt.Printf("watch:              %s\n", d)
		}
	}
}

func printUsage() {
	fmt.Println(`licita - supplier recommendations for government tenders

Usage:
  licita server [flags]                  Start the HTTP server
  licita recommend [flags] <tender_id>   Rank suppliers for a tender
  licita train [flags]                   Rebuild the supplier corpus index
  licita import [flags] <file>...        Import suppliers, tenders and proposals (.yaml, .xlsx)
  licita score [flags] <tender_id>       Score the proposals of a tender
  licita evaluate --cases <file>         Measure precision/recall/F1 against labelled cases
  licita status [flags]                  Show catalog and recommender status
  licita version                         Show version
  licita help                            Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/licita/config.yaml)
  --debug            Enable debug logging
  --output string    Output format: text or json (default: text)

Recommend Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --top-n int        Number of suppliers to return (default from config)

Train Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to build locally.
  --wait             Wait for the rebuild to finish (default: true)

Evaluate Flags:
  --cases string     YAML file with a "cases" list of {tender: {id, text}, relevant: [ids]}
  --k int            Cutoff for the metrics (default: 10)

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.

Examples:
  licita server
  licita import catalog/fornecedores.xlsx catalog/licitacoes.yaml
  licita recommend --top-n 3 t-2024-001
  licita recommend --output json t-2024-001
  licita score t-2024-001
  licita evaluate --cases eval.yaml --k 5
  licita status --server ""`)
}

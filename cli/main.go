package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"ytinsight"
	"ytinsight/config"
	"ytinsight/insight"
	"ytinsight/internal/logging"
	"ytinsight/internal/metrics"
	"ytinsight/render"
	"ytinsight/server"
	"ytinsight/storage"
	"ytinsight/youtube"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// errUsage marks errors already reported with a usage message.
var errUsage = errors.New("usage")

// cli carries the output streams shared by every subcommand.
type cli struct {
	stdout io.Writer
	stderr io.Writer
}

// run dispatches args to a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr}
	if len(args) == 0 {
		c.printUsage()
		return 1
	}

	var err error
	switch args[0] {
	case "search":
		err = c.cmdSearch(ctx, args[1:])
	case "inspect":
		err = c.cmdInspect(ctx, args[1:])
	case "key":
		err = c.cmdKey(ctx, args[1:])
	case "history":
		err = c.cmdHistory(ctx, args[1:])
	case "serve":
		err = c.cmdServe(ctx, args[1:])
	case "help", "-h", "--help":
		c.printUsage()
	default:
		// A bare keyword is a search.
		err = c.cmdSearch(ctx, args)
	}

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	}
	fmt.Fprintf(stderr, "Error: %v\n", explain(err))
	return 1
}

func (c *cli) printUsage() {
	fmt.Fprintf(c.stderr, `ytinsight - YouTube keyword search analyzer

Usage:
  ytinsight search [flags] <keyword>    Search and rank videos
  ytinsight inspect [flags] <video-id>  Analyze a single video
  ytinsight key set <api-key>           Save the YouTube Data API key
  ytinsight key show                    Show where the API key comes from
  ytinsight key delete                  Remove the saved API key
  ytinsight history [list|show|delete|clear]
                                        Manage the search history
  ytinsight serve [flags]               Run the JSON HTTP API
  ytinsight help                        Show this help message

Sort criteria: quality, views, likes, comments, date

Examples:
  ytinsight "golang tutorial"                         # Search (default)
  ytinsight search --sort views --max 20 golang       # Most viewed first
  ytinsight search --insights golang                  # Include insight panels
  ytinsight search --table golang                     # Compact table
  ytinsight inspect dQw4w9WgXcQ                       # Analyze one video
  ytinsight serve --addr :8080                        # Start the API server

Configuration: ytinsight.yaml or YTINSIGHT_* environment variables.
For help on specific command: ytinsight <command> -h
`)
}

// flagSet builds a subcommand flag set that reports to stderr.
func (c *cli) flagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "Usage: ytinsight %s\n\nFlags:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args. Help requests pass through as flag.ErrHelp; other
// parse errors have already been printed and become errUsage.
func (c *cli) parse(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return errUsage
}

// usagef reports a usage error followed by the flag set's usage.
func (c *cli) usagef(fs *flag.FlagSet, format string, args ...any) error {
	fmt.Fprintf(c.stderr, "Error: "+format+"\n", args...)
	fs.Usage()
	return errUsage
}

func (c *cli) cmdSearch(ctx context.Context, args []string) error {
	fs := c.flagSet("search", "search [flags] <keyword>")
	sortStr := fs.String("sort", "", "Sort criterion: quality, views, likes, comments, date (default from config)")
	maxResults := fs.Int("max", 0, "Maximum results, 1-50 (default from config)")
	noChannels := fs.Bool("no-channels", false, "Skip channel statistics")
	showInsights := fs.Bool("insights", false, "Show the insights panel on each card")
	asTable := fs.Bool("table", false, "Render a compact table instead of cards")
	asJSON := fs.Bool("json", false, "Print results as JSON")
	region := fs.String("region", "", "Region code, e.g. KR (default from config)")
	lang := fs.String("lang", "", "Relevance language, e.g. ko (default from config)")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	keyword := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if keyword == "" {
		return c.usagef(fs, "missing keyword")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	criterion := cfg.Criterion()
	if *sortStr != "" {
		cr, ok := insight.ParseCriterion(*sortStr)
		if !ok {
			return c.usagef(fs, "invalid --sort value %q (use quality, views, likes, comments, or date)", *sortStr)
		}
		criterion = cr
	}
	limit := cfg.MaxResults
	if *maxResults != 0 {
		if *maxResults < 1 || *maxResults > youtube.MaxResultsPerPage {
			return c.usagef(fs, "--max must be between 1 and %d", youtube.MaxResultsPerPage)
		}
		limit = *maxResults
	}

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := logging.NewConsole(cfg.LogLevel, c.stderr)
	analyzer, err := newAnalyzer(ctx, cfg, store, logger, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stderr, "Searching %q...\n", keyword)
	entries, err := analyzer.Search(ctx, keyword, ytinsight.SearchOptions{
		Criterion:    criterion,
		MaxResults:   limit,
		WithChannels: !*noChannels,
		RegionCode:   *region,
		Language:     *lang,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	switch {
	case *asJSON:
		return c.printJSON(entries)
	case *asTable:
		fmt.Fprintln(c.stdout, render.Table(entries))
	default:
		fmt.Fprintln(c.stdout, render.List(entries, criterion, render.Options{
			Width:        terminalWidth(),
			ShowInsights: *showInsights,
		}))
	}
	return nil
}

func (c *cli) cmdInspect(ctx context.Context, args []string) error {
	fs := c.flagSet("inspect", "inspect [flags] <video-id>")
	asJSON := fs.Bool("json", false, "Print the analysis as JSON")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return c.usagef(fs, "missing video-id")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := logging.NewConsole(cfg.LogLevel, c.stderr)
	analyzer, err := newAnalyzer(ctx, cfg, store, logger, nil)
	if err != nil {
		return err
	}
	entry, err := analyzer.Inspect(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	if *asJSON {
		return c.printJSON(entry)
	}
	fmt.Fprintln(c.stdout, render.Card(entry, render.Options{Width: terminalWidth(), ShowInsights: true}))
	return nil
}

func (c *cli) cmdKey(ctx context.Context, args []string) error {
	fs := c.flagSet("key", "key set <api-key> | show | delete")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return c.usagef(fs, "missing key command")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	switch fs.Arg(0) {
	case "set":
		if fs.NArg() < 2 {
			return c.usagef(fs, "missing api-key")
		}
		if err := store.SaveAPIKey(ctx, fs.Arg(1)); err != nil {
			return fmt.Errorf("save key: %w", err)
		}
		fmt.Fprintf(c.stderr, "API key saved to %s\n", store.Path())
	case "show":
		if cfg.APIKey != "" {
			fmt.Fprintf(c.stdout, "%s (from config)\n", maskKey(cfg.APIKey))
			return nil
		}
		key, err := store.APIKey(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintln(c.stdout, "No API key configured.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		fmt.Fprintf(c.stdout, "%s (from %s)\n", maskKey(key), store.Path())
	case "delete":
		if err := store.DeleteAPIKey(ctx); err != nil {
			return fmt.Errorf("delete key: %w", err)
		}
		fmt.Fprintln(c.stderr, "API key removed")
	default:
		return c.usagef(fs, "unknown key command %q (use set, show, or delete)", fs.Arg(0))
	}
	return nil
}

func (c *cli) cmdHistory(ctx context.Context, args []string) error {
	fs := c.flagSet("history", "history [flags] [list | show <id> | delete <id> | clear]")
	limit := fs.Int("limit", 20, "Maximum records to list (0 = all)")
	asJSON := fs.Bool("json", false, "Print records as JSON")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	action := "list"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	switch action {
	case "list":
		records, err := store.ListSearches(ctx, *limit)
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}
		if *asJSON {
			return c.printJSON(records)
		}
		fmt.Fprintln(c.stdout, render.History(records))
	case "show":
		if fs.NArg() < 2 {
			return c.usagef(fs, "missing record id")
		}
		rec, err := store.GetSearch(ctx, fs.Arg(1))
		if err != nil {
			return fmt.Errorf("show history: %w", err)
		}
		return c.printJSON(rec)
	case "delete":
		if fs.NArg() < 2 {
			return c.usagef(fs, "missing record id")
		}
		if err := store.DeleteSearch(ctx, fs.Arg(1)); err != nil {
			return fmt.Errorf("delete history: %w", err)
		}
	case "clear":
		if err := store.ClearSearches(ctx); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		fmt.Fprintln(c.stderr, "Search history cleared")
	default:
		return c.usagef(fs, "unknown history command %q (use list, show, delete, or clear)", action)
	}
	return nil
}

func (c *cli) cmdServe(ctx context.Context, args []string) error {
	fs := c.flagSet("serve", "serve [flags]")
	addr := fs.String("addr", "", "Listen address (default from config)")
	origins := fs.String("cors", "", "Comma-separated allowed CORS origins")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	listen := cfg.ListenAddr
	if *addr != "" {
		listen = *addr
	}

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := logging.New(cfg.LogLevel, c.stderr)
	m := metrics.New()
	srv := server.New(server.Config{
		APIKey:  cfg.APIKey,
		Keys:    store,
		History: store,
		NewSource: func(ctx context.Context, apiKey string) (ytinsight.Source, error) {
			return newClient(ctx, cfg, apiKey, logger, m)
		},
		DefaultCriterion:  cfg.Criterion(),
		DefaultMaxResults: cfg.MaxResults,
		AllowedOrigins:    splitList(*origins),
		Logger:            logger,
		Metrics:           m,
	})
	return srv.ListenAndServe(ctx, listen)
}

// newAnalyzer resolves the API key, config first and then the store, and
// builds an Analyzer recording into store.
func newAnalyzer(ctx context.Context, cfg *config.Config, store storage.Store, logger zerolog.Logger, m *metrics.Metrics) (*ytinsight.Analyzer, error) {
	key := cfg.APIKey
	if key == "" {
		k, err := store.APIKey(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ytinsight.ErrMissingAPIKey
		}
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key = k
	}

	client, err := newClient(ctx, cfg, key, logger, m)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &ytinsight.Analyzer{Source: client, History: store, Logger: logger}, nil
}

func newClient(ctx context.Context, cfg *config.Config, apiKey string, logger zerolog.Logger, m *metrics.Metrics) (*youtube.Client, error) {
	rc := cfg.RetryConfig()
	return youtube.New(ctx, youtube.Options{
		APIKey:           apiKey,
		Endpoint:         cfg.APIEndpoint,
		HTTP:             cfg.HTTPConfig(),
		Retry:            &rc,
		RegionCode:       cfg.RegionCode,
		Language:         cfg.Language,
		ChannelCacheSize: cfg.ChannelCacheSize,
		ChannelCacheTTL:  cfg.ChannelCacheTTL,
		Logger:           &logger,
		Metrics:          m,
	})
}

// explain adds a hint for errors the user can fix.
func explain(err error) error {
	switch {
	case errors.Is(err, ytinsight.ErrMissingAPIKey):
		return fmt.Errorf("%w\nSet %sAPI_KEY or run: ytinsight key set <api-key>", err, config.EnvPrefix)
	case errors.Is(err, ytinsight.ErrInvalidAPIKey):
		return fmt.Errorf("%w\nCheck the key in the Google Cloud console, then run: ytinsight key set <api-key>", err)
	case errors.Is(err, ytinsight.ErrQuotaExceeded):
		return fmt.Errorf("%w\nThe daily quota resets at midnight Pacific time", err)
	case errors.Is(err, context.Canceled):
		return errors.New("interrupted")
	}
	return err
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// terminalWidth reads COLUMNS, falling back to the default card width.
func terminalWidth() int {
	var w int
	if _, err := fmt.Sscanf(os.Getenv("COLUMNS"), "%d", &w); err != nil || w < 40 {
		return render.DefaultWidth
	}
	return min(w, 120)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

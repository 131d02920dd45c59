package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/pokedex-scroll/pkg/assets"
	"github.com/Sternrassler/pokedex-scroll/pkg/client"
	"github.com/Sternrassler/pokedex-scroll/pkg/logging"
	"github.com/Sternrassler/pokedex-scroll/pkg/metrics"
	"github.com/Sternrassler/pokedex-scroll/pkg/pagination"
	"github.com/Sternrassler/pokedex-scroll/pkg/pokedex"
	"github.com/Sternrassler/pokedex-scroll/pkg/render"
	"github.com/Sternrassler/pokedex-scroll/pkg/scroll"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// options are the resolved command line settings.
type options struct {
	baseURL     string
	assets      string
	template    string
	out         string
	metricsFile string
	userAgent   string
	logLevel    string
	pretty      bool
	pageSize    int
	maxItems    int
	concurrency int
	timeout     time.Duration
}

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "pokedex",
		Short: "Render an infinitely scrolled Pokedex page",
		Long: `Fetches Pokemon page by page from PokeAPI, scrolling to the bottom of the
list after every page until the listing is exhausted, and writes the
resulting HTML page with one color coded card per Pokemon.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			cfg := logging.DefaultConfig()
			cfg.Level = level
			cfg.Pretty = opts.pretty
			cfg.Output = cmd.ErrOrStderr()
			logging.Setup(cfg)

			if err := run(cmd.Context(), opts, cmd.OutOrStdout()); err != nil {
				logger := logging.NewLogger(logging.ComponentCLI)
				logger.Error().Err(err).Msg("Run failed")
				return err
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.baseURL, "base-url", getEnv("POKEAPI_BASE_URL", client.DefaultBaseURL), "PokeAPI root URL")
	f.StringVar(&opts.assets, "assets", getEnv("POKEDEX_ASSETS", "."), "page directory or URL containing assets/img/{id}.png")
	f.StringVar(&opts.template, "template", getEnv("POKEDEX_TEMPLATE", ""), "HTML page with a data-js=\"pokemons-list\" element (default: built-in page)")
	f.StringVarP(&opts.out, "out", "o", getEnv("POKEDEX_OUT", "-"), "output file, - for stdout")
	f.StringVar(&opts.metricsFile, "metrics-file", getEnv("POKEDEX_METRICS_FILE", ""), "write Prometheus metrics to this textfile after the run")
	f.StringVar(&opts.userAgent, "user-agent", getEnv("USER_AGENT", "pokedex-scroll/"+version), "User-Agent header for API requests")
	f.StringVar(&opts.logLevel, "log-level", getEnv("LOG_LEVEL", string(logging.LevelInfo)), "debug, info, warn or error")
	f.BoolVar(&opts.pretty, "pretty", getEnvBool("LOG_PRETTY", false), "human readable logs")
	f.IntVar(&opts.pageSize, "page-size", getEnvInt("POKEDEX_PAGE_SIZE", pagination.DefaultLimit), "cards per page")
	f.IntVar(&opts.maxItems, "max-items", getEnvInt("POKEDEX_MAX_ITEMS", pagination.DefaultMaxItems), "stop after this many listing entries, 0 for the API count")
	f.IntVar(&opts.concurrency, "concurrency", getEnvInt("POKEDEX_CONCURRENCY", 0), "entries resolved at once per page, 0 for the whole page")
	f.DurationVar(&opts.timeout, "timeout", getEnvDuration("POKEDEX_TIMEOUT", 0), "per request timeout, 0 for none")

	return cmd
}

func run(ctx context.Context, opts *options, stdout io.Writer) error {
	runID := uuid.NewString()
	logger := logging.NewLogger(logging.ComponentCLI).With().Str("run_id", runID).Logger()
	start := time.Now()

	if opts.pageSize <= 0 {
		return fmt.Errorf("page size must be > 0 (got %d)", opts.pageSize)
	}

	apiCfg := client.DefaultConfig(opts.userAgent)
	apiCfg.BaseURL = opts.baseURL
	apiCfg.Timeout = opts.timeout
	api, err := client.New(apiCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	images, err := newResolver(api, opts.assets)
	if err != nil {
		return err
	}

	fetcher, err := pokedex.New(api, images, pokedex.Config{
		Concurrency: opts.concurrency,
		MaxItems:    opts.maxItems,
	})
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	doc, err := loadDocument(opts.template)
	if err != nil {
		return err
	}

	logger.Info().
		Str("base_url", api.BaseURL()).
		Str("assets", opts.assets).
		Int("page_size", opts.pageSize).
		Int("max_items", opts.maxItems).
		Msg("Starting pokedex run")

	scroller := scroll.NewAutoScroll()
	trigger := scroll.NewTrigger(fetcher, doc, scroller, pagination.New(opts.pageSize).Capped(opts.maxItems))

	if err := trigger.Start(ctx); err != nil {
		return fmt.Errorf("start trigger: %w", err)
	}
	if err := trigger.Run(ctx, scroller.Entries()); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}

	if err := writeOutput(doc, opts.out, stdout); err != nil {
		return err
	}

	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
			return err
		}
	}

	logger.Info().
		Int("cards", doc.Len()).
		Int("pages", trigger.Pages()).
		Str("state", trigger.State().String()).
		Int("offset", trigger.Pagination().Offset).
		Dur("duration", time.Since(start)).
		Msg("Pokedex run complete")

	return nil
}

func newResolver(api *client.Client, location string) (assets.Resolver, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		r, err := assets.NewHTTPResolver(api, location)
		if err != nil {
			return nil, fmt.Errorf("create image resolver: %w", err)
		}
		return r, nil
	}

	info, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("assets directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("assets directory: %s is not a directory", location)
	}
	return assets.NewDirResolver(os.DirFS(location)), nil
}

func loadDocument(path string) (*render.Document, error) {
	if path == "" {
		return render.NewDocument(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer f.Close()

	doc, err := render.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return doc, nil
}

func writeOutput(doc *render.Document, path string, stdout io.Writer) error {
	if path == "" || path == "-" {
		return doc.Render(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := doc.Render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// Command gnews queries the GNews API from the shell.
//
//	gnews headlines [--lang en] [--country us] [--category technology] [--max 5]
//	gnews search <query> [--sortby publish-time] [--from 2024-01-01T00:00:00Z]
//
// The API key is read from --apikey or GNEWS_API_KEY.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/samvad-hq/gnews-go/internal/config"
	"github.com/samvad-hq/gnews-go/internal/logger"
	"github.com/samvad-hq/gnews-go/pkg/gnews"
	"github.com/samvad-hq/gnews-go/pkg/httpclient"
)

const usage = `usage: gnews <command> [flags]

commands:
  headlines          top headlines
  search <query>     search articles by keywords

run "gnews <command> --help" for the flags of a command`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "gnews: %v\n", err)
			stop()
			os.Exit(1)
		}
	}
}

// queryFlags holds the per-request flags shared by both commands.
type queryFlags struct {
	query  gnews.SearchQuery
	asJSON bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return errUsage
	}

	cmd := args[0]
	if cmd != "headlines" && cmd != "search" {
		fmt.Fprintln(stderr, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	fs, qf := newFlagSet(cmd, stderr)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if err := validateEnums(qf.query); err != nil {
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.InitWriter(cfg.LogLevel, stderr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Close()

	client, err := gnews.New(cfg.APIKey, gnews.Options{
		APIVersion: cfg.APIVersion,
		MaxWait:    cfg.MaxWait,
		Endpoint:   cfg.Endpoint,
		HTTPClient: httpclient.NewRestyClient(httpclient.Options{
			UserAgent: cfg.AppName,
			Tracing:   cfg.HTTPTracing,
		}),
		Logger: log,
	})
	if err != nil {
		return err
	}

	var resp *gnews.NewsResponse
	switch cmd {
	case "headlines":
		resp, err = client.Headlines(ctx, qf.query.HeadlinesQuery.Params())
	case "search":
		q := strings.TrimSpace(strings.Join(fs.Args(), " "))
		resp, err = client.Search(ctx, q, qf.query.Params())
	}
	if err != nil {
		return err
	}

	if qf.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printArticles(stdout, cmd, resp)
	return nil
}

func newFlagSet(cmd string, stderr io.Writer) (*pflag.FlagSet, *queryFlags) {
	fs := pflag.NewFlagSet("gnews "+cmd, pflag.ContinueOnError)
	fs.SetOutput(stderr)

	// Bound to config keys, see config.Load.
	fs.String("apikey", "", "GNews API key (default $GNEWS_API_KEY)")
	fs.String("api-version", gnews.DefaultAPIVersion, "API version path segment")
	fs.Int64("max-wait-ms", gnews.DefaultMaxWait.Milliseconds(), "maximum wait per request in milliseconds")
	fs.String("endpoint", gnews.DefaultEndpoint, "API scheme and host")
	fs.String("log-level", "info", "log level for diagnostics written to stderr")
	fs.Bool("tracing", false, "emit OpenTelemetry spans for HTTP calls")

	qf := &queryFlags{}
	q := &qf.query
	fs.StringVar(&q.Lang, "lang", "", "2-letter language code")
	fs.StringVar(&q.Country, "country", "", "2-letter country code")
	fs.IntVar(&q.Max, "max", 0, "number of articles to return")
	fs.StringVar((*string)(&q.Category), "category", "", "category: "+joinCategories())
	fs.StringVar(&q.In, "in", "", "attributes to search in, e.g. title,description")
	fs.StringVar(&q.Nullable, "nullable", "", "attributes allowed to be null, e.g. description,content")
	fs.StringVar(&q.From, "from", "", "earliest publication date (ISO 8601)")
	fs.StringVar(&q.To, "to", "", "latest publication date (ISO 8601)")
	fs.IntVar(&q.Page, "page", 0, "page number")
	fs.StringVar(&q.Expand, "expand", "", "set to content for full article content")
	if cmd == "search" {
		fs.StringVar((*string)(&q.SortBy), "sortby", "", "ordering: "+joinSortOrders())
	}
	fs.BoolVar(&qf.asJSON, "json", false, "print the raw JSON response")

	return fs, qf
}

// validateEnums rejects unknown category and sortby values before any request is made.
func validateEnums(q gnews.SearchQuery) error {
	if q.Category != "" && !q.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q (valid: %s)", errUsage, q.Category, joinCategories())
	}
	if q.SortBy != "" && !q.SortBy.Valid() {
		return fmt.Errorf("%w: unknown sortby %q (valid: %s)", errUsage, q.SortBy, joinSortOrders())
	}
	return nil
}

func joinCategories() string {
	out := make([]string, len(gnews.Categories))
	for i, c := range gnews.Categories {
		out[i] = string(c)
	}
	return strings.Join(out, ", ")
}

func joinSortOrders() string {
	out := make([]string, len(gnews.SortOrders))
	for i, s := range gnews.SortOrders {
		out[i] = string(s)
	}
	return strings.Join(out, ", ")
}

func printArticles(w io.Writer, cmd string, resp *gnews.NewsResponse) {
	title := "Top Headlines"
	if cmd == "search" {
		title = "Search Results"
	}
	fmt.Fprintf(w, "%s (%d total):\n\n", title, resp.TotalArticles)
	for i, a := range resp.Articles {
		fmt.Fprintf(w, "%d. %s\n", i+1, a.Title)
		if a.Description != "" {
			fmt.Fprintf(w, "   %s\n", a.Description)
		}
		fmt.Fprintf(w, "   Source: %s - %s\n", a.Source.Name, a.PublishedAt)
		fmt.Fprintf(w, "   URL: %s\n\n", a.URL)
	}
}

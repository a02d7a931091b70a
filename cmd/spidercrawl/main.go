// Command spidercrawl is a thin illustrative CLI over the spider engine.
// It is not part of the core library; it exists to exercise Crawler from
// a terminal the way tools/crawler's standalone scripts once did.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/theaidguild/spider"
)

var (
	depth      int
	delay      time.Duration
	requestTO  time.Duration
	crawlTO    time.Duration
	userAgent  string
	useChrome  bool
	scrape     bool
	outFile    string
	maxTotal   int
	noRobots   bool
	urlsFile   string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "spidercrawl <start-url>",
	Short: "Crawl a site starting from a seed URL",
	Long: `spidercrawl drives the spider engine from the command line: it
seeds a crawl at the given URL, follows discovered links breadth-first,
and writes one line per page to stdout (or --out).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.Flags().IntVar(&depth, "depth", -1, "maximum link depth to follow (-1 for unlimited)")
	rootCmd.Flags().DurationVar(&delay, "delay", 0, "per-host delay between requests")
	rootCmd.Flags().DurationVar(&requestTO, "request-timeout", 30*time.Second, "per-request timeout")
	rootCmd.Flags().DurationVar(&crawlTO, "crawl-timeout", 0, "overall crawl timeout (0 for unlimited)")
	rootCmd.Flags().StringVar(&userAgent, "user-agent", "", "User-Agent header to send")
	rootCmd.Flags().BoolVar(&useChrome, "chrome", false, "render pages with a headless browser instead of plain HTTP")
	rootCmd.Flags().BoolVar(&scrape, "scrape", false, "retain page bodies (run Scrape instead of Crawl); output lines are the same")
	rootCmd.Flags().StringVar(&outFile, "out", "", "write crawled URLs to this file instead of stdout")
	rootCmd.Flags().IntVar(&maxTotal, "max-pages", 0, "stop after this many pages (0 for unlimited)")
	rootCmd.Flags().BoolVar(&noRobots, "ignore-robots", false, "do not consult robots.txt")
	rootCmd.Flags().StringVar(&urlsFile, "urls-file", "", "seed multiple crawls, one start URL per line")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "write one JSON object per page instead of tab-separated fields")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	var startURLs []string
	if urlsFile != "" {
		lines, err := readURLsFromFile(urlsFile)
		if err != nil {
			return fmt.Errorf("reading --urls-file: %w", err)
		}
		startURLs = lines
	}
	if len(args) == 1 {
		startURLs = append(startURLs, args[0])
	}
	if len(startURLs) == 0 {
		return fmt.Errorf("provide a start URL or --urls-file")
	}

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("creating --out file: %w", err)
		}
		defer f.Close()
		out = f
	}

	for _, u := range startURLs {
		if err := crawlOne(u, out); err != nil {
			fmt.Fprintf(os.Stderr, "spidercrawl: %s: %v\n", u, err)
		}
	}
	return nil
}

func crawlOne(startURL string, out *os.File) error {
	builder := spider.NewBuilder(startURL).
		WithDepth(depth).
		WithDelay(delay).
		WithRequestTimeout(requestTO).
		WithCrawlTimeout(crawlTO).
		WithUserAgent(userAgent).
		WithChrome(useChrome).
		WithRespectRobotsTxt(!noRobots)
	if maxTotal > 0 {
		builder = builder.WithBudget("*", maxTotal)
	}
	cfg, err := builder.Build()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	crawler, err := spider.New(cfg)
	if err != nil {
		return fmt.Errorf("starting crawler: %w", err)
	}
	defer crawler.Close()

	pages := crawler.Subscribe(64)
	done := make(chan error, 1)
	go func() {
		if scrape {
			done <- crawler.Scrape(context.Background())
		} else {
			done <- crawler.Crawl(context.Background())
		}
	}()

	for p := range pages {
		if jsonOutput {
			writeJSONRecord(out, p)
			continue
		}
		if p.Err != nil {
			fmt.Fprintf(out, "%s\terror\t%v\n", p.URL, p.Err)
			continue
		}
		fmt.Fprintf(out, "%s\t%d\n", p.URL, p.StatusCode)
	}
	return <-done
}

// pageRecord is the CLI's JSON-lines shape for a crawled Page. error isn't
// itself JSON-marshalable, so it's flattened to a string.
type pageRecord struct {
	URL        string   `json:"url"`
	FinalURL   string   `json:"final_url,omitempty"`
	StatusCode int      `json:"status_code"`
	Depth      int      `json:"depth"`
	Attempt    int      `json:"attempt"`
	Err        string   `json:"error,omitempty"`
	Links      []string `json:"links,omitempty"`
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// writeJSONRecord marshals one page as a single JSON-lines record. jsoniter
// is a drop-in, faster encoding/json substitute here; marshal errors are
// swallowed to a stderr note since a CLI dump shouldn't abort a long crawl
// over one bad record.
func writeJSONRecord(out *os.File, p spider.Page) {
	rec := pageRecord{
		URL:        p.URL,
		FinalURL:   p.FinalURL,
		StatusCode: p.StatusCode,
		Depth:      p.Depth,
		Attempt:    p.Attempt,
		Links:      p.Links,
	}
	if p.Err != nil {
		rec.Err = p.Err.Error()
	}
	b, err := jsonAPI.Marshal(rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spidercrawl: marshaling %s: %v\n", p.URL, err)
		return
	}
	out.Write(b)
	out.Write([]byte("\n"))
}

// readURLsFromFile returns non-empty trimmed lines from path.
func readURLsFromFile(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, l := range strings.Split(string(b), "\n") {
		if s := strings.TrimSpace(l); s != "" {
			lines = append(lines, s)
		}
	}
	return lines, nil
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/japaniel/kotoba/pkg/analyzer"
	"github.com/japaniel/kotoba/pkg/db"
	"github.com/japaniel/kotoba/pkg/dictionary"
	"github.com/japaniel/kotoba/pkg/ingest"
	"github.com/japaniel/kotoba/pkg/kana"
)

func runBuild(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	urlFlag := fs.String("url", "", "URL of the article to add")
	fileFlag := fs.String("file", "", "Local HTML file to add")
	noDict := fs.Bool("no-dict", false, "Do not download or load the dictionary")
	workers := fs.Int("workers", 4, "Analysis workers")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if (*urlFlag == "") == (*fileFlag == "") {
		return errors.New("provide exactly one of -url or -file")
	}

	conn, err := a.openDB()
	if err != nil {
		return err
	}
	defer conn.Close()
	fmt.Fprintf(a.stdout, "Database initialized at %s\n", a.paths.DB)

	var dict *dictionary.Importer
	if !*noDict {
		dict = a.loadDictionary(ctx, conn)
	}

	var (
		article    analyzer.Article
		sourceType string
		location   string
	)
	if *urlFlag != "" {
		fmt.Fprintf(a.stdout, "Fetching %s...\n", *urlFlag)
		article, err = fetchArticle(ctx, *urlFlag)
		sourceType, location = "website_article", *urlFlag
	} else {
		article, err = readArticle(*fileFlag)
		sourceType = "file"
		location, _ = filepath.Abs(*fileFlag)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Title: %s\n", article.Title)
	fmt.Fprintf(a.stdout, "Extracted Text Length: %d chars\n", len(article.Text))

	sourceID, err := db.CreateOrGetSource(conn, sourceType, article.Title, article.Byline, article.SiteName, location, "")
	if err != nil {
		return fmt.Errorf("failed to persist source: %w", err)
	}
	a.log.Debug().Int64("source", sourceID).Msg("source saved")

	an, err := analyzer.New()
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}
	sentences := an.AnalyzeDocument(article.Text)
	fmt.Fprintf(a.stdout, "Analyzed %d sentences.\n", len(sentences))

	ingester := ingest.NewIngester(conn, dict, kana.New())
	ingester.Workers = *workers
	ingester.OnProgress = func(current, total int) {
		a.log.Info().Int("sentence", current).Int("of", total).Msg("progress")
	}
	linkCount, err := ingester.Ingest(ctx, sourceID, sentences)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "Processing complete. Linked %d word occurrences.\n", linkCount)
	return nil
}

func runImportDict(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	if err := a.parse(fs, args); err != nil {
		return err
	}
	conn, err := a.openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	importer := a.loadDictionary(ctx, conn)
	if importer == nil {
		return fmt.Errorf("no dictionary at %s", a.paths.Dictionary)
	}
	count, err := importer.ProcessUpdates()
	if err != nil {
		return fmt.Errorf("failed to update definitions: %w", err)
	}
	fmt.Fprintf(a.stdout, "Successfully updated definitions for %d words.\n", count)
	return nil
}

// loadDictionary makes sure the dictionary is on disk and indexes it. A
// dictionary that cannot be had leaves the deck without English, so failures
// are logged and nil is returned.
func (a *app) loadDictionary(ctx context.Context, conn *sql.DB) *dictionary.Importer {
	path := a.paths.Dictionary
	if err := dictionary.EnsureDictionary(ctx, path); err != nil {
		a.log.Warn().Err(err).Str("path", path).Msg("failed to ensure dictionary, continuing without definitions")
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(a.stdout, "Skipping dictionary load (file missing). Definitions will be empty.")
		return nil
	}

	start := time.Now()
	entries, err := dictionary.LoadJMdictSimplified(path)
	if err != nil {
		a.log.Warn().Err(err).Msg("failed to load dictionary")
		return nil
	}
	fmt.Fprintf(a.stdout, "Dictionary loaded (%d entries) in %v\n", len(entries), time.Since(start).Round(time.Millisecond))
	return dictionary.NewImporter(conn, entries)
}

func readArticle(path string) (analyzer.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return analyzer.Article{}, err
	}
	defer f.Close()
	abs, _ := filepath.Abs(path)
	return analyzer.ExtractArticle(f, &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)})
}

// browserHeaders keep news sites from answering 403 to a bare client.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language":           "ja,en-US;q=0.9,en;q=0.8",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Upgrade-Insecure-Requests": "1",
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func fetchArticle(ctx context.Context, rawURL string) (analyzer.Article, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return analyzer.Article{}, fmt.Errorf("invalid url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return analyzer.Article{}, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return analyzer.Article{}, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return analyzer.Article{}, fmt.Errorf("got status code %d", resp.StatusCode)
	}
	if resp.ContentLength > analyzer.MaxArticleSize {
		return analyzer.Article{}, fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, analyzer.MaxArticleSize)
	}
	return analyzer.ExtractArticle(resp.Body, pageURL)
}

package analyzer

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"

	"github.com/go-shiori/go-readability"
)

// MaxArticleSize bounds how much HTML is read from one source.
const MaxArticleSize = 10 * 1024 * 1024

// Article is the readable part of an HTML page.
type Article struct {
	Title    string
	Byline   string
	SiteName string
	Text     string
}

// ExtractArticle reads HTML from r, strips furigana and returns the main
// article text. pageURL resolves relative links and may be nil.
func ExtractArticle(r io.Reader, pageURL *url.URL) (Article, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxArticleSize+1))
	if err != nil {
		return Article{}, fmt.Errorf("read html: %w", err)
	}
	if len(body) > MaxArticleSize {
		return Article{}, fmt.Errorf("html exceeds %d bytes", MaxArticleSize)
	}
	if pageURL == nil {
		pageURL = &url.URL{Scheme: "file", Path: "/"}
	}

	article, err := readability.FromReader(bytes.NewReader(SanitizeRuby(body)), pageURL)
	if err != nil {
		return Article{}, fmt.Errorf("extract article: %w", err)
	}
	return Article{
		Title:    article.Title,
		Byline:   article.Byline,
		SiteName: article.SiteName,
		Text:     article.TextContent,
	}, nil
}

var (
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>) and ruby parentheses (<rp>) from
// HTML so that extracted text does not repeat each word's furigana
// ("漢字かんじ").
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, nil)
	return reRP.ReplaceAll(cleaned, nil)
}

package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"podcastforge/internal/logging"
	"podcastforge/internal/progress"
	"podcastforge/internal/queue"
	"podcastforge/internal/services"
)

const (
	articleUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxArticleBytes  = 5 << 20
	// MinArticleChars rejects pages whose extracted body is too short to
	// summarize, typically paywalls and consent walls.
	MinArticleChars = 100
)

// Article fetches a web page and extracts its main text.
type Article struct {
	client *http.Client
	logger *slog.Logger
}

// NewArticle builds an article resolver. A nil client uses one with timeout.
func NewArticle(client *http.Client, timeout time.Duration, logger *slog.Logger) *Article {
	if client == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Article{client: client, logger: logging.NewComponentLogger(logger, "resolve.article")}
}

// Resolve implements Resolver.
func (a *Article) Resolve(ctx context.Context, sourceReference string, reporter progress.Reporter) (Content, error) {
	pageURL, err := parseHTTPURL(sourceReference)
	if err != nil {
		return Content{}, services.Wrap(services.ErrInvalidInput, "downloading", "resolve article", "invalid article url", err)
	}
	report(ctx, reporter, progress.Update{Stage: queue.StageDownloading, Percent: progress.PercentArticleDownloading, Message: "Fetching article"})

	html, err := a.fetch(ctx, pageURL)
	if err != nil {
		return Content{}, services.Wrap(services.ErrSourceFetchFailed, "downloading", "fetch article", pageURL.Host, err)
	}
	title, text := ExtractArticle(html, pageURL)
	if len([]rune(text)) < MinArticleChars {
		return Content{}, services.Wrap(services.ErrSourceFetchFailed, "downloading", "fetch article", "no readable article content", nil)
	}
	a.logger.Info("article extracted",
		logging.String("host", pageURL.Host),
		logging.Int("chars", len([]rune(text))),
		logging.String(logging.FieldEventType, "article_extracted"),
	)
	report(ctx, reporter, progress.Update{Stage: queue.StageDownloading, Percent: progress.Scale(queue.StageDownloading, 1), Message: "Article fetched"})
	return Content{Title: title, Text: text}, nil
}

func (a *Article) fetch(ctx context.Context, pageURL *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", articleUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ExtractArticle returns the title and body text of an HTML document.
// Readability is tried first; goquery covers pages it cannot score.
func ExtractArticle(html string, pageURL *url.URL) (string, string) {
	var title, text string
	if article, err := readability.FromReader(strings.NewReader(html), pageURL); err == nil {
		title = strings.TrimSpace(article.Title)
		text = normalizeWhitespace(article.TextContent)
	}
	if title != "" && text != "" {
		return title, text
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return title, text
	}
	if title == "" {
		title = fallbackTitle(doc)
	}
	if text == "" {
		doc.Find("script, style, nav, header, footer, aside").Remove()
		for _, selector := range []string{"article", "main", "body"} {
			if candidate := normalizeWhitespace(doc.Find(selector).First().Text()); candidate != "" {
				text = candidate
				break
			}
		}
	}
	return title, text
}

func fallbackTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title
	}
	if title, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		return strings.TrimSpace(title)
	}
	return ""
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func parseHTTPURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("missing host")
	}
	return parsed, nil
}

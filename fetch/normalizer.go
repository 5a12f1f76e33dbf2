// Package fetch retrieves web documents and reduces them to plain text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/gleaner/core"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; gleaner/1.0; +https://github.com/poiesic/gleaner)"
	defaultMaxBytes  = 10 << 20
)

// boilerplate lists elements that never carry primary content.
const boilerplate = "script, style, noscript, nav, header, footer, aside, form, iframe, svg"

// contentSelectors are tried in order; the first with text wins.
var contentSelectors = []string{"article", "main", "[role=main]", "body"}

// errEmptyDocument is wrapped in core.ErrFetchFailed when nothing readable remains.
var errEmptyDocument = errors.New("document has no readable text")

// HTTPNormalizer fetches a URL and extracts its primary readable text.
type HTTPNormalizer struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
}

// Option configures an HTTPNormalizer.
type Option func(*HTTPNormalizer)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *HTTPNormalizer) {
		n.client = c
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(n *HTTPNormalizer) {
		n.client = &http.Client{Timeout: d}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(n *HTTPNormalizer) {
		n.userAgent = ua
	}
}

// WithMaxBytes bounds how much of a response body is read.
func WithMaxBytes(max int64) Option {
	return func(n *HTTPNormalizer) {
		n.maxBytes = max
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *HTTPNormalizer) {
		n.logger = logger
	}
}

// NewHTTPNormalizer creates a normalizer with a 30s timeout and a 10MiB body limit.
func NewHTTPNormalizer(opts ...Option) *HTTPNormalizer {
	n := &HTTPNormalizer{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		maxBytes:  defaultMaxBytes,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("component", "normalizer")
	return n
}

// FetchAndNormalize downloads url and returns its minified primary text.
// Every failure wraps core.ErrFetchFailed. There is no retry at this layer.
func (n *HTTPNormalizer) FetchAndNormalize(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: unexpected status code: %d", core.ErrFetchFailed, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, n.maxBytes)

	var text string
	if isPlainText(resp.Header.Get("Content-Type")) {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("%w: %w", core.ErrFetchFailed, err)
		}
		text = Minify(string(raw))
	} else {
		doc, err := goquery.NewDocumentFromReader(body)
		if err != nil {
			return "", fmt.Errorf("%w: parse html: %w", core.ErrFetchFailed, err)
		}
		text = ExtractText(doc)
	}

	if text == "" {
		return "", fmt.Errorf("%w: %w", core.ErrFetchFailed, errEmptyDocument)
	}

	n.logger.Debug("normalized document", "url", url, "chars", len(text))
	return text, nil
}

// ExtractText drops boilerplate elements and returns the minified text of the
// first non-empty primary content region.
func ExtractText(doc *goquery.Document) string {
	doc.Find(boilerplate).Remove()
	for _, sel := range contentSelectors {
		var parts []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t := Minify(s.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	return Minify(doc.Text())
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Minify strips any remaining markup, collapses whitespace runs to single
// spaces and trims the result.
func Minify(text string) string {
	text = tagPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// isPlainText reports whether a Content-Type names a non-HTML text body.
func isPlainText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") && mediaType != "text/html"
}

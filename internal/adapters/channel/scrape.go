package channel

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dealwatch/internal/domain/model"
)

// Scrape configuration constants.
const (
	defaultScrapeTimeout = 30 * time.Second

	scrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Product page selectors, primary first with legacy fallbacks.
var (
	priceSelectors = []string{
		"[data-testid='deal-price']",
		".product-price__current",
		".price-current",
	}
	listPriceSelectors = []string{
		"[data-testid='list-price']",
		".product-price__list",
		".price-was",
	}
	ratingSelector       = "[data-testid='rating-value']"
	reviewCountSelector  = "[data-testid='review-count']"
	availabilitySelector = "[data-testid='availability']"
)

var nonNumeric = regexp.MustCompile(`[^0-9.,]`)

// ScrapeOption applies a configuration option to the ScrapeChannel.
type ScrapeOption func(*ScrapeChannel)

// WithScrapeHTTPClient overrides the HTTP client.
func WithScrapeHTTPClient(c *http.Client) ScrapeOption {
	return func(s *ScrapeChannel) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// ScrapeChannel fetches product data from the marketplace product page.
// Same Quote contract as the API channel, higher latency, no token bucket.
type ScrapeChannel struct {
	httpClient *http.Client
	baseURL    string
}

// NewScrapeChannel creates the scraping fallback channel.
func NewScrapeChannel(baseURL string, opts ...ScrapeOption) *ScrapeChannel {
	s := &ScrapeChannel{
		httpClient: &http.Client{Timeout: defaultScrapeTimeout},
		baseURL:    baseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ScrapeChannel) Name() model.Channel { return model.ChannelScrape }

// Fetch downloads and parses the product page.
func (s *ScrapeChannel) Fetch(ctx context.Context, externalID string) (model.Quote, error) {
	url := s.baseURL + "/dp/" + externalID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Quote{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", scrapeUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return model.Quote{}, fmt.Errorf("scrape request %s: %w", externalID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		// Bot mitigation answers 429/503; treat like the API budget.
		return model.Quote{}, ErrRateLimited
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return model.Quote{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return model.Quote{}, fmt.Errorf("scrape status %d for %s", resp.StatusCode, externalID)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return model.Quote{}, fmt.Errorf("parse page %s: %w", externalID, err)
	}

	price, priceOK := firstPrice(doc, priceSelectors)
	listPrice, _ := firstPrice(doc, listPriceSelectors)

	available := priceOK
	if txt := strings.ToLower(text(doc, availabilitySelector)); txt != "" {
		available = !strings.Contains(txt, "unavailable") && !strings.Contains(txt, "out of stock")
	}

	rating, _ := strconv.ParseFloat(strings.TrimSpace(text(doc, ratingSelector)), 64)
	reviewCount := parseCount(text(doc, reviewCountSelector))

	q := model.Quote{
		Price:       price,
		ListPrice:   listPrice,
		Currency:    "USD",
		Available:   available,
		Rating:      rating,
		ReviewCount: reviewCount,
	}
	if err := validate(q); err != nil {
		return model.Quote{}, err
	}
	return q, nil
}

func text(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

func firstPrice(doc *goquery.Document, selectors []string) (int64, bool) {
	for _, sel := range selectors {
		if txt := text(doc, sel); txt != "" {
			if cents, ok := parsePrice(txt); ok {
				return cents, true
			}
		}
	}
	return 0, false
}

// parsePrice turns price text like "$1,299.99" into cents.
func parsePrice(raw string) (int64, bool) {
	cleaned := nonNumeric.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	major, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || major <= 0 {
		return 0, false
	}
	return int64(major*100 + 0.5), true
}

// parseCount turns review-count text like "1,234 ratings" into an int.
func parseCount(raw string) int {
	cleaned := nonNumeric.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.Split(cleaned, ".")[0]
	if cleaned == "" {
		return 0
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}

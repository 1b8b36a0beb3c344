package googlebooks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Dan9191/book-search-service/internal/config"
	"github.com/Dan9191/book-search-service/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// NoAuthorPlaceholder is used when the catalog lists no authors
const NoAuthorPlaceholder = "No author to display"

// maxResponseSize bounds how much of a provider response is read
const maxResponseSize = 4 << 20

// Client handles integration with the Google Books volumes API
type Client struct {
	url    string
	apiKey string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new Google Books client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url:    cfg.GoogleBooksURL,
		apiKey: cfg.GoogleBooksAPIKey,
		client: &http.Client{
			Timeout: cfg.ProviderTimeout,
		},
		log: log,
	}
}

// buildURL adds the query and api key to the volumes endpoint
func (c *Client) buildURL(query string) (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid provider url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sendRequest fetches the raw volumes response
func (c *Client) sendRequest(ctx context.Context, query string) ([]byte, error) {
	endpoint, err := c.buildURL(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", models.ErrProvider, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", models.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: rate limited by provider", models.ErrProvider)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status code: %d", models.ErrProvider, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", models.ErrProvider, err)
	}

	c.log.Debugf("Google Books response: %d bytes", len(body))
	return body, nil
}

// parseResponse coerces catalog items into search results, dropping malformed ones
func (c *Client) parseResponse(body []byte) ([]models.SearchResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", models.ErrProvider)
	}

	items := gjson.GetBytes(body, "items")
	results := []models.SearchResult{}
	if !items.Exists() {
		return results, nil
	}
	if !items.IsArray() {
		return nil, fmt.Errorf("%w: items is not a list", models.ErrProvider)
	}

	for i, item := range items.Array() {
		result, ok := toSearchResult(item)
		if !ok {
			c.log.Debugf("Dropping malformed catalog item at index %d", i)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func toSearchResult(item gjson.Result) (models.SearchResult, bool) {
	id := item.Get("id")
	title := item.Get("volumeInfo.title")
	if id.Type != gjson.String || strings.TrimSpace(id.Str) == "" || title.Type != gjson.String {
		return models.SearchResult{}, false
	}

	var authors []string
	for _, a := range item.Get("volumeInfo.authors").Array() {
		if a.Type == gjson.String && a.Str != "" {
			authors = append(authors, a.Str)
		}
	}
	if len(authors) == 0 {
		authors = []string{NoAuthorPlaceholder}
	}

	return models.SearchResult{
		ID:          id.Str,
		Title:       title.Str,
		Authors:     authors,
		Description: stringField(item, "volumeInfo.description"),
		Image:       stringField(item, "volumeInfo.imageLinks.thumbnail"),
		Link:        stringField(item, "volumeInfo.infoLink"),
	}, true
}

func stringField(item gjson.Result, path string) string {
	v := item.Get(path)
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}

// Search forwards query to the provider and maps the returned volumes
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", models.ErrValidation)
	}

	body, err := c.sendRequest(ctx, query)
	if err != nil {
		c.log.WithError(err).Warn("Book search failed")
		return nil, err
	}

	results, err := c.parseResponse(body)
	if err != nil {
		c.log.WithError(err).Warn("Book search returned an unusable response")
		return nil, err
	}

	c.log.Infof("Book search %q returned %d results", query, len(results))
	return results, nil
}

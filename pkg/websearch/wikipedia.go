package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const wikipediaEndpoint = "https://en.wikipedia.org/w/api.php"

// WikipediaProvider is the fallback knowledge source: it resolves the query
// to the best-matching article and returns its plain-text intro extract.
type WikipediaProvider struct {
	Endpoint string
	Client   *http.Client
}

var _ SummaryProvider = &WikipediaProvider{}

func NewWikipediaProvider() *WikipediaProvider {
	return &WikipediaProvider{
		Endpoint: wikipediaEndpoint,
		Client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiExtractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

func (p *WikipediaProvider) Summarize(ctx context.Context, query string) (string, error) {
	title, err := p.bestMatchTitle(ctx, query)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("titles", title)
	params.Set("format", "json")
	params.Set("redirects", "1")

	var extractResp wikiExtractResponse
	if err := p.get(ctx, params, &extractResp); err != nil {
		return "", err
	}

	for _, page := range extractResp.Query.Pages {
		if page.Extract != "" {
			return fmt.Sprintf("%s: %s", page.Title, page.Extract), nil
		}
	}
	return "", fmt.Errorf("wikipedia: no extract for %q", title)
}

func (p *WikipediaProvider) bestMatchTitle(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", "1")
	params.Set("format", "json")

	var searchResp wikiSearchResponse
	if err := p.get(ctx, params, &searchResp); err != nil {
		return "", err
	}
	if len(searchResp.Query.Search) == 0 {
		return "", fmt.Errorf("wikipedia: no article matches %q", query)
	}
	return searchResp.Query.Search[0].Title, nil
}

func (p *WikipediaProvider) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("wikipedia request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikipedia: unexpected status %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuckDuckGoParsesAbstractAndTopics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "go language", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Write([]byte(`{
			"Heading": "Go (programming language)",
			"AbstractText": "Go is a statically typed language.",
			"AbstractURL": "https://en.wikipedia.org/wiki/Go",
			"RelatedTopics": [
				{"Text": "Golang tooling", "FirstURL": "https://example.com/tooling"},
				{"Text": "", "FirstURL": "https://example.com/empty"},
				{"Text": "Go modules", "FirstURL": "https://example.com/modules"}
			]
		}`))
	}))
	defer server.Close()

	p := NewDuckDuckGoProvider()
	p.Endpoint = server.URL

	results, err := p.Search(context.Background(), "go language", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Go (programming language)", results[0].Title)
	assert.Equal(t, "Go is a statically typed language.", results[0].Snippet)
	assert.Equal(t, "Golang tooling", results[1].Title)
	assert.Equal(t, "Go modules", results[2].Title)
}

func TestDuckDuckGoRespectsMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"AbstractText": "abstract",
			"AbstractURL": "https://example.com",
			"RelatedTopics": [
				{"Text": "one", "FirstURL": "https://example.com/1"},
				{"Text": "two", "FirstURL": "https://example.com/2"}
			]
		}`))
	}))
	defer server.Close()

	p := NewDuckDuckGoProvider()
	p.Endpoint = server.URL

	results, err := p.Search(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDuckDuckGoRateLimit(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusForbidden} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		p := NewDuckDuckGoProvider()
		p.Endpoint = server.URL

		_, err := p.Search(context.Background(), "q", 3)
		assert.ErrorIs(t, err, ErrRateLimited)
		server.Close()
	}
}

func TestWikipediaSummarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("list") == "search" {
			w.Write([]byte(`{"query": {"search": [{"title": "Go (programming language)"}]}}`))
			return
		}
		assert.Equal(t, "Go (programming language)", r.URL.Query().Get("titles"))
		w.Write([]byte(`{"query": {"pages": {"12345": {"title": "Go (programming language)", "extract": "Go is a language designed at Google."}}}}`))
	}))
	defer server.Close()

	p := NewWikipediaProvider()
	p.Endpoint = server.URL

	summary, err := p.Summarize(context.Background(), "golang")
	require.NoError(t, err)
	assert.Equal(t, "Go (programming language): Go is a language designed at Google.", summary)
}

func TestWikipediaNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query": {"search": []}}`))
	}))
	defer server.Close()

	p := NewWikipediaProvider()
	p.Endpoint = server.URL

	_, err := p.Summarize(context.Background(), "zxqwv nonsense")
	assert.Error(t, err)
}

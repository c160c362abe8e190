package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet_Success(t *testing.T) {
	var gotUA, gotLang, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body><h1>Test</h1></body></html>"))
	}))
	defer server.Close()

	client := NewClient(nil)
	result, err := client.Get(context.Background(), server.URL+"/find/", url.Values{"q": {"the two towers 2002"}}, map[string]string{"Accept-Language": "en-US"})
	require.NoError(t, err)
	assert.Contains(t, string(result.Body), "<h1>Test</h1>")
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "en-US", gotLang)
	assert.Equal(t, "the two towers 2002", gotQuery)
}

func TestClientGet_InvalidURL(t *testing.T) {
	_, err := NewClient(nil).Get(context.Background(), "not-a-valid-url", nil, nil)
	require.Error(t, err)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.True(t, IsNetwork(err))
	assert.Contains(t, err.Error(), "invalid URL")
}

func TestClientGet_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := NewClient(nil).Get(context.Background(), server.URL, nil, nil)
	require.Error(t, err)
	assert.NotNil(t, result) // Result is returned even on error
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.True(t, IsNetwork(err))
	assert.False(t, IsParse(err))
	assert.Contains(t, err.Error(), "404")
}

func TestClientGet_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(&Options{Timeout: 50 * time.Millisecond})
	_, err := client.Get(context.Background(), server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
}

func TestClientGet_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(nil).Get(ctx, server.URL, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientGet_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer server.Close()

	client := NewClient(&Options{MaxBodyBytes: 1024})
	result, err := client.Get(context.Background(), server.URL, nil, nil)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, IsParse(err))
	assert.Contains(t, err.Error(), "exceeds 1024 bytes")
}

func TestClientGet_BodyAtLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 1024)))
	}))
	defer server.Close()

	result, err := NewClient(&Options{MaxBodyBytes: 1024}).Get(context.Background(), server.URL, nil, nil)
	require.NoError(t, err)
	assert.Len(t, result.Body, 1024)
}

func TestClientDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h3 class="list__heading">Aftermath (2017)</h3></body></html>`))
	}))
	defer server.Close()

	doc, err := NewClient(nil).Document(context.Background(), server.URL+"/sv/", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Aftermath (2017)", doc.Find("h3.list__heading").Text())
	require.NotNil(t, doc.Url)
	assert.Equal(t, "/sv/", doc.Url.Path)
}

func TestNewClient_FillsDefaults(t *testing.T) {
	client := NewClient(&Options{})
	assert.Equal(t, DefaultTimeout, client.options.Timeout)
	assert.Equal(t, DefaultUserAgent, client.options.UserAgent)
	assert.Equal(t, DefaultMaxBodyBytes, client.options.MaxBodyBytes)
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://example.com/sv/item/?itemid=1", ResolveURL("https://example.com/sv/", "/sv/item/?itemid=1"))
	assert.Equal(t, "https://example.com/sv/item", ResolveURL("https://example.com/sv/", "item"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", ResolveURL("https://example.com/", "https://cdn.example.com/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", ResolveURL("https://example.com/", "//cdn.example.com/a.jpg"))
	assert.Equal(t, "", ResolveURL("https://example.com/", "http://[::1"))
}

func TestDocumentWithBrowserFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(nil)
	var rendered string
	client.render = func(_ context.Context, pageURL string, _ time.Duration, _ *slog.Logger) (string, error) {
		rendered = pageURL
		return `<html><body><meta property="og:image" content="poster.jpg"></body></html>`, nil
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	doc, err := client.DocumentWithBrowserFallback(context.Background(), server.URL+"/title/tt1/", nil, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/title/tt1/", rendered)
	content, _ := doc.Find(`meta[property="og:image"]`).Attr("content")
	assert.Equal(t, "poster.jpg", content)
}

func TestDocumentWithBrowserFallback_NotTriggeredOnNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(nil)
	client.render = func(context.Context, string, time.Duration, *slog.Logger) (string, error) {
		t.Fatal("browser should not be used for a 404")
		return "", nil
	}

	_, err := client.DocumentWithBrowserFallback(context.Background(), server.URL, nil, nil, nil)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
}

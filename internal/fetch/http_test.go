package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPFetcherFetchCapturesValidators(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != defaultUserAgent || r.Header.Get("If-None-Match") != "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		_, _ = w.Write([]byte("name: demo\n"))
	}))
	defer srv.Close()

	resp, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "name: demo\n", string(resp.Content))
	require.Equal(t, `"v1"`, resp.ETag)
	require.Equal(t, "Mon, 02 Jan 2006 15:04:05 GMT", resp.LastModified)
}

func TestHTTPFetcherConditionalNotModified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v2"`)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher()
	resp, err := fetcher.FetchIfChanged(context.Background(), srv.URL, `"v1"`)
	require.NoError(t, err)
	require.Nil(t, resp)

	resp, err = fetcher.FetchIfChanged(context.Background(), srv.URL, `"old"`)
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, "fresh", string(resp.Content))
	require.Equal(t, `"v2"`, resp.ETag)
}

func TestHTTPFetcherRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrHTTPStatus)
	require.Contains(t, err.Error(), "502")
}

func TestHTTPFetcherNotModifiedWithoutETagIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrHTTPStatus)
}

func TestHTTPFetcherBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(WithMaxBodySize(16)).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrResponseTooLarge)

	resp, err := NewHTTPFetcher(WithMaxBodySize(64)).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, resp.Content, 64)
}

func TestHTTPFetcherSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrHTTPStatus)

	resp, err := NewHTTPFetcher(WithAuthToken("secret"), WithUserAgent("custom/1")).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "ok", string(resp.Content))
}

func TestHTTPFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewHTTPFetcher(WithTimeout(50*time.Millisecond)).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestNewClientDefaultsTimeout(t *testing.T) {
	require.Equal(t, DefaultTimeout, NewClient(0).Timeout)
	require.Equal(t, 45*time.Second, NewClient(45*time.Second).Timeout)
}

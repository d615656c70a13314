package signedreq

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func TestNewTransport(t *testing.T) {
	profile := Profile{Key: "transport-key"}

	t.Run("nil base clones default transport", func(t *testing.T) {
		transport := NewTransport(nil, SignConfig{Profile: profile})
		assert.NotNil(t, transport.base)
		assert.NotSame(t, http.DefaultTransport, transport.base)
	})

	t.Run("custom base is used", func(t *testing.T) {
		base := &http.Transport{IdleConnTimeout: 42 * time.Second}

		transport := NewTransport(base, SignConfig{Profile: profile})
		assert.Same(t, base, transport.base)
	})

	t.Run("signs requests end to end", func(t *testing.T) {
		cache := newMemoryCache()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := VerifyRequest(r, VerifyConfig{Profile: profile, Cache: cache}); err != nil {
				http.Error(w, err.Error(), StatusCode(err))
				return
			}

			body, _ := io.ReadAll(r.Body)
			w.Write(body)
		}))
		defer server.Close()

		client := &http.Client{Transport: NewTransport(nil, SignConfig{Profile: profile})}

		for _, path := range []string{"", "/", "/api/items", "/api/items/", "/api/items?q=a%20b&page=2"} {
			resp, err := client.Post(server.URL+path, "application/json", strings.NewReader(`{"url":"https://example.com/a","name":"ã"}`))
			require.NoError(t, err)

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			require.NoError(t, err)

			assert.Equal(t, http.StatusOK, resp.StatusCode, "%s: %s", path, body)
		}
	})

	t.Run("signs over tls", func(t *testing.T) {
		server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := VerifyRequest(r, VerifyConfig{Profile: profile, Cache: newMemoryCache()})
			w.WriteHeader(StatusCode(err))
		}))
		defer server.Close()

		base := &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // test server certificate
		client := &http.Client{Transport: NewTransport(base, SignConfig{Profile: profile})}

		resp, err := client.Get(server.URL + "/secure")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("wrong key rejected by server", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := VerifyRequest(r, VerifyConfig{Profile: profile, Cache: newMemoryCache()})
			w.WriteHeader(StatusCode(err))
		}))
		defer server.Close()

		client := &http.Client{Transport: NewTransport(nil, SignConfig{Profile: Profile{Key: "other"}})}

		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("caller request not mutated", func(t *testing.T) {
		var seen *http.Request

		transport := NewTransport(nil, SignConfig{Profile: profile})
		transport.base = roundTripFunc(func(r *http.Request) (*http.Response, error) {
			seen = r
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
		})

		req, err := http.NewRequest(http.MethodGet, "https://localhost/items", nil)
		require.NoError(t, err)

		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		resp.Body.Close()

		require.NotNil(t, seen)
		assert.NotSame(t, req, seen)
		assert.NotEmpty(t, seen.Header.Get(DefaultSignatureHeader))
		assert.Empty(t, req.Header.Get(DefaultSignatureHeader))
	})

	t.Run("host override and fragment", func(t *testing.T) {
		var serverURI string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serverURI = FromHTTP(r).URI()
			err := VerifyRequest(r, VerifyConfig{Profile: profile, Cache: newMemoryCache()})
			w.WriteHeader(StatusCode(err))
		}))
		defer server.Close()

		client := &http.Client{Transport: NewTransport(nil, SignConfig{Profile: profile})}

		req, err := http.NewRequest(http.MethodPost, server.URL+"/p#frag", strings.NewReader(`{"a":1}`))
		require.NoError(t, err)
		req.Host = "api.example"

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "http://api.example/p", serverURI)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("caller body closed and kept", func(t *testing.T) {
		for _, withGetBody := range []bool{true, false} {
			var received string

			transport := NewTransport(nil, SignConfig{Profile: profile})
			transport.base = roundTripFunc(func(r *http.Request) (*http.Response, error) {
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				received = string(body)

				return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
			})

			req, err := http.NewRequest(http.MethodPost, "https://localhost/items", strings.NewReader("payload"))
			require.NoError(t, err)

			body := &trackingBody{Reader: strings.NewReader("payload")}
			req.Body = body
			if !withGetBody {
				req.GetBody = nil
			}

			resp, err := transport.RoundTrip(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, "payload", received, "GetBody %v", withGetBody)
			assert.True(t, body.closed, "GetBody %v", withGetBody)
			assert.Same(t, body, req.Body, "GetBody %v", withGetBody)
		}
	})

	t.Run("invalid config returns error", func(t *testing.T) {
		client := &http.Client{Transport: NewTransport(nil, SignConfig{})}

		_, err := client.Get("http://127.0.0.1:1")
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitalvas/signedrequests/replay"
	"github.com/vitalvas/signedrequests/signedreq"
)

const testConfig = `
default:
  key: default-key
custom:
  key: custom-key
  algorithm: sha3-256
`

func writeConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "signed-requests.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

// headerArgs converts sign output into repeated -H flags.
func headerArgs(t *testing.T, output string) []string {
	t.Helper()

	var args []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		require.Contains(t, line, ": ")
		args = append(args, "-H", line)
	}

	return args
}

func TestSignCommand(t *testing.T) {
	config := writeConfig(t)

	t.Run("prints signing headers", func(t *testing.T) {
		out, err := execute(t, "sign", "--config", config, "-X", "post", "-d", `{"test":"test"}`, "https://localhost/api")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[0], signedreq.DefaultIDHeader+": "))
		assert.True(t, strings.HasPrefix(lines[1], signedreq.DefaultTimestampHeader+": "))
		assert.Equal(t, signedreq.DefaultAlgorithmHeader+": sha256", lines[2])
		assert.True(t, strings.HasPrefix(lines[3], signedreq.DefaultSignatureHeader+": "))
	})

	t.Run("custom profile", func(t *testing.T) {
		out, err := execute(t, "sign", "--config", config, "--profile", "custom", "https://localhost/api")
		require.NoError(t, err)
		assert.Contains(t, out, "X-Algorithm: sha3-256")
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := execute(t, "sign", "--config", config, "--profile", "missing", "https://localhost/api")
		assert.ErrorIs(t, err, signedreq.ErrInvalidConfiguration)
	})

	t.Run("missing config", func(t *testing.T) {
		_, err := execute(t, "sign", "--config", filepath.Join(t.TempDir(), "none.yaml"), "https://localhost/api")
		assert.ErrorIs(t, err, signedreq.ErrInvalidConfiguration)
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := execute(t, "sign", "--config", config, "--log-level", "loud", "https://localhost/api")
		assert.Error(t, err)
	})

	t.Run("send", func(t *testing.T) {
		all, err := (&app{configPath: config}).loadProfiles()
		require.NoError(t, err)

		router, err := newRouter(all, replay.NewMemory(0), zap.NewNop(), nil, prometheus.NewRegistry())
		require.NoError(t, err)

		server := httptest.NewServer(router)
		defer server.Close()

		out, err := execute(t, "sign", "--config", config, "--send", "-X", "POST", "-d", `{"a": 1}`, server.URL+"/default/items")
		require.NoError(t, err)
		assert.Contains(t, out, "200 OK")
		assert.Contains(t, out, `"content":"{\"a\":1}"`)

		out, err = execute(t, "sign", "--config", config, "--profile", "custom", "--send", server.URL+"/default/items")
		assert.Error(t, err)
		assert.Contains(t, out, "400 Bad Request")
	})
}

func TestVerifyCommand(t *testing.T) {
	config := writeConfig(t)

	sign := func(t *testing.T, profile, body, url string) []string {
		t.Helper()

		out, err := execute(t, "sign", "--config", config, "--profile", profile, "-X", "PUT", "-d", body, url)
		require.NoError(t, err)

		return headerArgs(t, out)
	}

	t.Run("round trip", func(t *testing.T) {
		headers := sign(t, "default", `{"test":"ã"}`, "https://localhost/api/")

		args := append([]string{"verify", "--config", config, "-X", "PUT", "-d", `{"test":"ã"}`}, headers...)
		args = append(args, "https://localhost/api")

		out, err := execute(t, args...)
		require.NoError(t, err)
		assert.Equal(t, "signature valid\n", out)
	})

	t.Run("tampered body", func(t *testing.T) {
		headers := sign(t, "default", `{"test":"test"}`, "https://localhost/api")

		args := append([]string{"verify", "--config", config, "-X", "PUT", "-d", `{"test":"tesT"}`}, headers...)
		args = append(args, "https://localhost/api")

		_, err := execute(t, args...)
		assert.ErrorIs(t, err, signedreq.ErrInvalidSignature)
		assert.Contains(t, err.Error(), "HTTP 400")
	})

	t.Run("wrong profile", func(t *testing.T) {
		headers := sign(t, "custom", `{}`, "https://localhost/api")

		args := append([]string{"verify", "--config", config, "-X", "PUT", "-d", `{}`}, headers...)
		args = append(args, "https://localhost/api")

		_, err := execute(t, args...)
		assert.ErrorIs(t, err, signedreq.ErrInvalidSignature)
	})

	t.Run("malformed header flag", func(t *testing.T) {
		_, err := execute(t, "verify", "--config", config, "-H", "no-colon", "https://localhost/api")
		assert.Error(t, err)
	})

	t.Run("unsigned request expired", func(t *testing.T) {
		_, err := execute(t, "verify", "--config", config, "https://localhost/api")
		assert.ErrorIs(t, err, signedreq.ErrExpiredRequest)
	})
}

func TestAlgorithmsCommand(t *testing.T) {
	out, err := execute(t, "algorithms")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, len(signedreq.Algorithms()))
	assert.Contains(t, lines, "sha256")
}

func TestRouter(t *testing.T) {
	all := signedreq.Profiles{
		"default": {Key: "default-key"},
		"custom":  {Key: "custom-key", AlgorithmHeader: "X-Algorithm"},
	}

	registry := prometheus.NewRegistry()

	router, err := newRouter(all, replay.NewMemory(0), zap.NewNop(), signedreq.NewMetrics(registry), registry)
	require.NoError(t, err)

	server := httptest.NewServer(router)
	defer server.Close()

	clientFor := func(t *testing.T, name string) *http.Client {
		t.Helper()

		profile, err := all.Resolve(name)
		require.NoError(t, err)

		return &http.Client{Transport: signedreq.NewTransport(nil, signedreq.SignConfig{Profile: profile})}
	}

	t.Run("echo for matching profile", func(t *testing.T) {
		resp, err := clientFor(t, "custom").Post(server.URL+"/custom/items/", "application/json", strings.NewReader(`{"b": "x\/y", "a": 2}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var echo echoResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&echo))

		assert.Equal(t, "custom", echo.Profile)
		assert.NotEmpty(t, echo.ID)
		assert.Equal(t, http.MethodPost, echo.Method)
		assert.Equal(t, server.URL+"/custom/items/", echo.URI)
		assert.Equal(t, `{"b":"x/y","a":2}`, echo.Content)
	})

	t.Run("profile root path", func(t *testing.T) {
		resp, err := clientFor(t, "default").Get(server.URL + "/default")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("other profile rejected", func(t *testing.T) {
		resp, err := clientFor(t, "default").Get(server.URL + "/custom/items")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unsigned rejected", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/default/items")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown prefix", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/other")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Contains(t, string(body), `signed_requests_verifications_total{profile="custom",result="accepted"} 1`)
		assert.Contains(t, string(body), `signed_requests_verifications_total{profile="custom",result="invalid_signature"} 1`)
	})

	t.Run("invalid profile", func(t *testing.T) {
		_, err := newRouter(signedreq.Profiles{"default": {}}, replay.NewMemory(0), zap.NewNop(), nil, prometheus.NewRegistry())
		assert.ErrorIs(t, err, signedreq.ErrInvalidConfiguration)
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("valid level", func(t *testing.T) {
		logger, err := newLogger("debug")
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := newLogger("verbose")
		assert.Error(t, err)
	})
}

package docsserver

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revsup/agentd/internal/metrics"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /list-apps", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["revsup-candidate-qualify"]`))
	})
	mux.HandleFunc("POST /echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream-Host", r.Host)
		_, _ = w.Write(body)
	})
	mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"openapi": "3.1.0",
			"info": {"title": "upstream", "version": "1.0.0"},
			"paths": {
				"/list-apps": {"get": {"summary": "List Apps"}}
			}
		}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newDocsServer(t *testing.T, upstreamURL string) *httptest.Server {
	t.Helper()
	srv, err := NewServer(Config{
		Host:        "127.0.0.1",
		Port:        8080,
		UpstreamURL: upstreamURL,
		Timeout:     5 * time.Second,
		Metrics:     metrics.NewMetrics(),
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(Config{Port: 0, UpstreamURL: "http://localhost:8000"})
	assert.Error(t, err)

	_, err = NewServer(Config{Port: 8080})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream")
}

func TestStartRejectsBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv, err := NewServer(Config{
		Host:        "127.0.0.1",
		Port:        ln.Addr().(*net.TCPAddr).Port,
		UpstreamURL: "http://127.0.0.1:8000",
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)

	err = srv.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestStartStop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	srv, err := NewServer(Config{
		Host:        "127.0.0.1",
		Port:        port,
		UpstreamURL: "http://127.0.0.1:8000",
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)

	require.NoError(t, srv.Start())
	require.NoError(t, srv.Stop())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newDocsServer(t, newUpstream(t).URL)

	// Drive a request through the proxy so counters have values
	resp, err := http.Get(ts.URL + "/api/list-apps")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "agentd_proxy_requests_total")
}

func TestRoot(t *testing.T) {
	ts := newDocsServer(t, newUpstream(t).URL)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "/scalar", body["docs"])
}

func TestScalarPage(t *testing.T) {
	upstream := newUpstream(t)
	ts := newDocsServer(t, upstream.URL)

	resp, err := http.Get(ts.URL + "/scalar")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(body)
	assert.Contains(t, page, "/openapi-proxy.json")
	assert.Contains(t, page, "@scalar/api-reference")
	assert.Contains(t, page, `"darkMode":true`)
	assert.Contains(t, page, upstream.URL)
}

func TestProxyForwardsRequests(t *testing.T) {
	ts := newDocsServer(t, newUpstream(t).URL)

	resp, err := http.Post(ts.URL+"/api/echo", "application/json", strings.NewReader(`{"hello":"world"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Headers"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"world"}`, string(body))
}

func TestProxyStripsHostHeader(t *testing.T) {
	upstream := newUpstream(t)
	ts := newDocsServer(t, upstream.URL)

	resp, err := http.Post(ts.URL+"/api/echo", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	// The upstream must see its own host, not the proxy's
	upstreamHost := strings.TrimPrefix(upstream.URL, "http://")
	assert.Equal(t, upstreamHost, resp.Header.Get("X-Upstream-Host"))
}

func TestProxyPassesStatusCodes(t *testing.T) {
	ts := newDocsServer(t, newUpstream(t).URL)

	resp, err := http.Get(ts.URL + "/api/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestProxyUpstreamDown(t *testing.T) {
	ts := newDocsServer(t, "http://127.0.0.1:1")

	resp, err := http.Get(ts.URL + "/api/list-apps")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["error"])
}

func TestPreflightHandledLocally(t *testing.T) {
	// Upstream is down; OPTIONS must still succeed
	ts := newDocsServer(t, "http://127.0.0.1:1")

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/run", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestOpenAPIProxyRewrites(t *testing.T) {
	ts := newDocsServer(t, newUpstream(t).URL)

	resp, err := http.Get(ts.URL + "/openapi-proxy.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))

	info := doc["info"].(map[string]interface{})
	assert.Equal(t, "Agent API", info["title"])
	assert.Contains(t, info["description"], "Quick Start")

	paths := doc["paths"].(map[string]interface{})
	assert.Contains(t, paths, "/list-agents")

	listApps := paths["/list-apps"].(map[string]interface{})
	get := listApps["get"].(map[string]interface{})
	assert.Equal(t, true, get["deprecated"])
	assert.Contains(t, get["summary"], "DEPRECATED")
}

func TestOpenAPIProxyKeepsExistingListAgents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"openapi": "3.1.0",
			"info": {"title": "upstream", "version": "1.0.0"},
			"paths": {"/list-agents": {"get": {"summary": "Existing"}}}
		}`))
	})
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	ts := newDocsServer(t, upstream.URL)

	resp, err := http.Get(ts.URL + "/openapi-proxy.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	var doc map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))

	paths := doc["paths"].(map[string]interface{})
	get := paths["/list-agents"].(map[string]interface{})["get"].(map[string]interface{})
	assert.Equal(t, "Existing", get["summary"])
}

func TestOpenAPIProxyUpstreamDown(t *testing.T) {
	ts := newDocsServer(t, "http://127.0.0.1:1")

	resp, err := http.Get(ts.URL + "/openapi-proxy.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

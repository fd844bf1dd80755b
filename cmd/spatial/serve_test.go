package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/njchilds90/gospatial/internal/config"
	"github.com/njchilds90/gospatial/toolcall"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zaptest.NewLogger(t)
	srv := httptest.NewServer(newMux(toolcall.New(log), 1<<10, log))
	t.Cleanup(srv.Close)
	return srv
}

func postTool(t *testing.T, url, body string) (*http.Response, toolcall.Response) {
	t.Helper()
	res, err := http.Post(url+"/tool", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	var out toolcall.Response
	if res.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	}
	return res, out
}

func TestTool_OK(t *testing.T) {
	srv := testServer(t)
	res, out := postTool(t, srv.URL, `{"tool":"transform_point","params":{"transform":[[1,0,0,1],[0,1,0,0],[0,0,1,0],[0,0,0,1]],"point":[1,2,3]}}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, out.Error)
	assert.Equal(t, []interface{}{2.0, 2.0, 3.0}, out.Result)
}

func TestTool_ToolErrorIsOK(t *testing.T) {
	srv := testServer(t)
	res, out := postTool(t, srv.URL, `{"tool":"nonexistent","params":{}}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "unknown tool: nonexistent", out.Error)
}

func TestTool_BadRequests(t *testing.T) {
	srv := testServer(t)
	for name, body := range map[string]string{
		"unknown field": `{"tool":"schema","extra":1}`,
		"trailing data": `{"tool":"mcp_spec"} {}`,
		"not json":      `tool`,
		"too large":     `{"tool":"to_string","params":{"expr":"` + strings.Repeat("x", 2048) + `"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			res, _ := postTool(t, srv.URL, body)
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		})
	}

	res, err := http.Get(srv.URL + "/tool")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestSchemaAndHealth(t *testing.T) {
	srv := testServer(t)

	res, err := http.Get(srv.URL + "/schema")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, toolcall.Schema(), buf.String())

	res, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	var health map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	cfg := config.DefaultConfig()
	cfg.Server.Addr = addr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, zaptest.NewLogger(t)) }()

	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not return")
	}
	http.DefaultClient.CloseIdleConnections()
}

package probe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LanXuage/astrascan/common/constant"
	"github.com/LanXuage/astrascan/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient() *probe.HTTPClient {
	return probe.NewHTTPClient(probe.ClientOptions{Timeout: time.Second, PoolSize: 4})
}

func TestHead(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Server", "Astra/5.62")
	}))
	defer srv.Close()

	resp, err := newClient().Head(context.Background(), srv.URL, time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Astra/5.62", resp.Header.Get("Server"))
	assert.Equal(t, constant.USER_AGENT, agent)
}

func TestGetText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/playlist.m3u", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	body, err := newClient().GetText(context.Background(), srv.URL+"/playlist.m3u", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n", body)

	_, err = newClient().GetText(context.Background(), srv.URL+"/missing", time.Second)
	assert.ErrorIs(t, err, probe.ErrStatus)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	began := time.Now()
	_, err := newClient().Head(context.Background(), srv.URL, 50*time.Millisecond)
	assert.Error(t, err)
	assert.Less(t, time.Since(began), time.Second)
}

func TestPeek(t *testing.T) {
	var rng string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rng = r.Header.Get("Range")
		switch r.URL.Path {
		case "/stream":
			w.WriteHeader(http.StatusPartialContent)
			w.Write(make([]byte, 4096))
		case "/empty":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	client := newClient()

	n, err := client.Peek(context.Background(), srv.URL+"/stream", time.Second, 1024)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), n)
	assert.Equal(t, "bytes=0-1023", rng)

	n, _ = client.Peek(context.Background(), srv.URL+"/empty", time.Second, 1024)
	assert.Zero(t, n)

	n, err = client.Peek(context.Background(), srv.URL+"/gone", time.Second, 1024)
	assert.ErrorIs(t, err, probe.ErrStatus)
	assert.Zero(t, n)
}

func TestSlowBodyOutlivesDefaultTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("#EXTM3U\n"))
	}))
	defer srv.Close()

	client := probe.NewHTTPClient(probe.ClientOptions{Timeout: 50 * time.Millisecond, PoolSize: 2})
	body, err := client.GetText(context.Background(), srv.URL, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n", body)

	_, err = client.GetText(context.Background(), srv.URL, 0)
	assert.Error(t, err)
}

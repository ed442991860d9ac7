package channel_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LanXuage/astrascan/channel"
	"github.com/LanXuage/astrascan/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamServer(gets *atomic.Int64) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/head-ok", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/get-only", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte("ts-bytes"))
	})
	mux.HandleFunc("/live.m3u8", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		gets.Add(1)
		w.Write([]byte("#EXTM3U"))
	})
	mux.HandleFunc("/dead", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return httptest.NewServer(mux)
}

func TestVerify(t *testing.T) {
	gets := &atomic.Int64{}
	srv := newStreamServer(gets)
	defer srv.Close()
	client := probe.NewHTTPClient(probe.ClientOptions{Timeout: time.Second, PoolSize: 4})
	verifier, err := channel.NewVerifier(client, 3, time.Second)
	require.NoError(t, err)
	defer verifier.Close()

	entries := []channel.Entry{
		{Title: "#EXTINF:-1,A", URL: srv.URL + "/head-ok"},
		{Title: "#EXTINF:-1,B", URL: srv.URL + "/get-only"},
		{Title: "#EXTINF:-1,C", URL: srv.URL + "/live.m3u8"},
		{Title: "#EXTINF:-1,D", URL: srv.URL + "/dead"},
		{Title: "#EXTINF:-1,A again", URL: srv.URL + "/head-ok"},
	}
	working := verifier.Verify(context.Background(), entries)
	urls := []string{}
	for _, e := range working {
		urls = append(urls, e.URL)
	}
	sort.Strings(urls)
	assert.Equal(t, []string{srv.URL + "/get-only", srv.URL + "/head-ok"}, urls)
	assert.Zero(t, gets.Load(), "manifest URLs get no fallback GET")
}

func TestVerifyEmpty(t *testing.T) {
	verifier, err := channel.NewVerifier(probe.NewHTTPClient(probe.ClientOptions{}), 0, time.Second)
	require.NoError(t, err)
	defer verifier.Close()
	assert.Empty(t, verifier.Verify(context.Background(), nil))
	assert.Equal(t, channel.DEFAULT_WORKERS, verifier.Workers.Cap())
}

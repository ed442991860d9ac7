package store_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LanXuage/astrascan/channel"
	"github.com/LanXuage/astrascan/store"
	"github.com/LanXuage/astrascan/target"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestAppendServer(t *testing.T) {
	paths := store.DefaultPaths(t.TempDir())
	s := store.New(paths)
	wg := sync.WaitGroup{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.AppendServer(target.Server{Addr: "10.0.0.1", Port: layers.TCPPort(8000 + i)}))
		}(i)
	}
	wg.Wait()
	lines := readLines(t, paths.Servers)
	assert.Len(t, lines, 20)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "10.0.0.1:80"), line)
	}
}

func TestAppendChannels(t *testing.T) {
	paths := store.DefaultPaths(t.TempDir())
	s := store.New(paths)
	first := []channel.Entry{
		{Title: "#EXTINF:-1,A", URL: "http://x/1"},
		{Title: "#EXTINF:-1,B", URL: "http://x/2"},
		{Title: "#EXTINF:-1,B copy", URL: "http://x/2"},
	}
	n, err := s.AppendChannels(first)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.AppendChannels([]channel.Entry{
		{Title: "#EXTINF:-1,A renamed", URL: "http://x/1"},
		{Title: "#EXTINF:-1,C", URL: "http://x/3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// a fresh store reads the history back from disk
	n, err = store.New(paths).AppendChannels(first)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, []string{
		"#EXTM3U",
		"#EXTINF:-1,A", "http://x/1",
		"#EXTINF:-1,B", "http://x/2",
		"#EXTINF:-1,C", "http://x/3",
	}, readLines(t, paths.Channels))
}

func TestAppendChannelsNothingNew(t *testing.T) {
	paths := store.DefaultPaths(t.TempDir())
	n, err := store.New(paths).AppendChannels(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = os.Stat(paths.Channels)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()
	paths := store.DefaultPaths(dir)
	s := store.New(paths)
	require.NoError(t, s.WriteSummary(store.Summary{RunID: "one", TotalChecked: 4}))
	server := target.Server{Addr: "10.0.0.1", Port: 8000, Service: "Astra/1.0.0", DiscoveredAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, s.WriteSummary(store.Summary{RunID: "two", TotalChecked: 4, ServersFound: 1, FoundServers: []target.Server{server}}))

	summary, err := store.ReadSummary(paths.Summary)
	require.NoError(t, err)
	assert.Equal(t, "two", summary.RunID)
	assert.NotEmpty(t, summary.ScanDate)
	require.Len(t, summary.FoundServers, 1)
	assert.Equal(t, server.Key(), summary.FoundServers[0].Key())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".summary-"), e.Name())
	}
	assert.Equal(t, filepath.Join(dir, "scan_summary.json"), paths.Summary)
}

func TestAppendChannelsLongHistoryLine(t *testing.T) {
	paths := store.DefaultPaths(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.Channels), 0755))
	history := "#EXTM3U\n#EXTINF:-1,Old\nhttp://x/1\n#EXTVLCOPT:" + strings.Repeat("x", 2<<20) + "\n#EXTINF:-1,Older\nhttp://x/2\n"
	require.NoError(t, os.WriteFile(paths.Channels, []byte(history), 0644))

	s := store.New(paths)
	n, err := s.AppendChannels([]channel.Entry{
		{Title: "#EXTINF:-1,Old", URL: "http://x/2"},
		{Title: "#EXTINF:-1,New", URL: "http://x/3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.AppendChannels([]channel.Entry{{Title: "#EXTINF:-1,Newer", URL: "http://x/4"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/LanXuage/astrascan/channel"
	"github.com/LanXuage/astrascan/common"
	"github.com/LanXuage/astrascan/common/constant"
	"github.com/LanXuage/astrascan/target"
	mapset "github.com/deckarep/golang-set"
	"go.uber.org/zap"
)

var logger = common.GetLogger()

const SUMMARY_TIME_LAYOUT = "2006-01-02 15:04:05"

type Paths struct {
	Servers  string
	Channels string
	Summary  string
}

// DefaultPaths places the three sinks under dir.
func DefaultPaths(dir string) Paths {
	return Paths{
		Servers:  filepath.Join(dir, constant.DEFAULT_SERVERS_FILE),
		Channels: filepath.Join(dir, filepath.FromSlash(constant.DEFAULT_CHANNELS_FILE)),
		Summary:  filepath.Join(dir, constant.DEFAULT_SUMMARY_FILE),
	}
}

// Summary is the final record of a run.
type Summary struct {
	RunID         string          `json:"run_id"`
	ScanDate      string          `json:"scan_date"`
	Elapsed       string          `json:"elapsed"`
	TotalTargets  int64           `json:"total_targets"`
	TotalChecked  int64           `json:"total_checked"`
	ServersFound  int64           `json:"servers_found"`
	ChannelsFound int64           `json:"channels_found"`
	FoundServers  []target.Server `json:"found_servers"`
}

// Store is the append-only sink for servers and channels. Every write is
// flushed before it returns, so nothing written is lost to a later crash.
type Store struct {
	paths Paths

	serverMu sync.Mutex

	channelMu sync.Mutex
	knownURLs mapset.Set
	loaded    bool
}

func New(paths Paths) *Store {
	return &Store{
		paths:     paths,
		knownURLs: mapset.NewSet(),
	}
}

func (s *Store) Paths() Paths {
	return s.paths
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), constant.DIR_PERM); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, constant.FILE_PERM)
}

// AppendServer writes one "address:port" line. Dedup is the caller's job.
func (s *Store) AppendServer(server target.Server) error {
	s.serverMu.Lock()
	defer s.serverMu.Unlock()
	f, err := openAppend(s.paths.Servers)
	if err != nil {
		return fmt.Errorf("open server sink: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(server.Key() + "\n"); err != nil {
		return fmt.Errorf("write server sink: %w", err)
	}
	return f.Sync()
}

// loadKnownURLs reads the URL of every descriptor/URL pair already in the
// channel file. Callers hold channelMu.
func (s *Store) loadKnownURLs() error {
	if s.loaded {
		return nil
	}
	f, err := os.Open(s.paths.Channels)
	if os.IsNotExist(err) {
		s.loaded = true
		return nil
	} else if err != nil {
		return err
	}
	defer f.Close()
	isURL := false
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			line = strings.TrimRight(line, "\r\n")
			if isURL {
				s.knownURLs.Add(line)
				isURL = false
			} else if strings.HasPrefix(line, constant.EXTINF_PREFIX) {
				isURL = true
			}
		}
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}
	}
	s.loaded = true
	logger.Debug("Loaded known channels", zap.String("path", s.paths.Channels), zap.Int("count", s.knownURLs.Cardinality()))
	return nil
}

// AppendChannels appends the entries whose URL was never written to the
// channel file before and returns how many were written.
func (s *Store) AppendChannels(entries []channel.Entry) (int, error) {
	s.channelMu.Lock()
	defer s.channelMu.Unlock()
	if err := s.loadKnownURLs(); err != nil {
		return 0, fmt.Errorf("read channel sink: %w", err)
	}
	fresh := make([]channel.Entry, 0, len(entries))
	batch := mapset.NewSet()
	for _, e := range entries {
		if s.knownURLs.Contains(e.URL) || !batch.Add(e.URL) {
			continue
		}
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	empty := true
	if info, err := os.Stat(s.paths.Channels); err == nil && info.Size() > 0 {
		empty = false
	}
	f, err := openAppend(s.paths.Channels)
	if err != nil {
		return 0, fmt.Errorf("open channel sink: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if empty {
		w.WriteString(constant.PLAYLIST_MAGIC + "\n")
	}
	for _, e := range fresh {
		w.WriteString(e.Title + "\n")
		w.WriteString(e.URL + "\n")
	}
	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("write channel sink: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("sync channel sink: %w", err)
	}
	for _, e := range fresh {
		s.knownURLs.Add(e.URL)
	}
	return len(fresh), nil
}

// WriteSummary replaces the summary file atomically.
func (s *Store) WriteSummary(summary Summary) error {
	if summary.ScanDate == "" {
		summary.ScanDate = time.Now().Format(SUMMARY_TIME_LAYOUT)
	}
	if summary.FoundServers == nil {
		summary.FoundServers = []target.Server{}
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.paths.Summary)
	if err := os.MkdirAll(dir, constant.DIR_PERM); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".summary-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), constant.FILE_PERM); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.paths.Summary)
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	summary := &Summary{}
	if err := json.Unmarshal(data, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

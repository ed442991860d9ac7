package channel

import (
	"strings"

	"github.com/LanXuage/astrascan/common"
	"github.com/LanXuage/astrascan/common/constant"
)

var logger = common.GetLogger()

// Entry is one playlist channel: the raw #EXTINF descriptor line and the
// URL line that followed it.
type Entry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (e Entry) Name() string {
	return Name(e.Title)
}

// Parse scans content once, pairing each descriptor line with the next URL
// line. URLs without a pending descriptor are dropped, and so is a
// descriptor that never gets a URL.
func Parse(content string) []Entry {
	ret := []Entry{}
	pending := ""
	rest := content
	for rest != "" {
		var line string
		line, rest, _ = strings.Cut(rest, "\n")
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, constant.EXTINF_PREFIX) {
			pending = line
		} else if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			if pending != "" {
				ret = append(ret, Entry{Title: pending, URL: line})
				pending = ""
			}
		}
	}
	return ret
}

// IsPlaylist reports whether body carries the extended playlist marker.
func IsPlaylist(body string) bool {
	return strings.Contains(body, constant.PLAYLIST_MAGIC)
}

// Name returns the display name of a descriptor line, the text after its
// last comma.
func Name(title string) string {
	if i := strings.LastIndexByte(title, ','); i != -1 {
		return strings.TrimSpace(title[i+1:])
	}
	return title
}

// IsManifest reports URLs that point at another playlist rather than at a
// media stream.
func IsManifest(rawURL string) bool {
	u := rawURL
	if i := strings.IndexAny(u, "?#"); i != -1 {
		u = u[:i]
	}
	u = strings.ToLower(u)
	return strings.HasSuffix(u, ".m3u8") || strings.HasSuffix(u, ".m3u")
}

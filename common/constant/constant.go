package constant

// fingerprint
const (
	SERVER_HEADER     string = "Server"
	DEFAULT_SIGNATURE string = "Astra"
	USER_AGENT        string = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// playlist format
const (
	PLAYLIST_PATH   string = "/playlist.m3u"
	PLAYLIST_MAGIC  string = "#EXTM3U"
	EXTINF_PREFIX   string = "#EXTINF:"
	MAX_PLAYLIST_SZ int64  = 8 << 20
	PEEK_SIZE       int64  = 1024
)

// default input and output locations
const (
	DEFAULT_ADDRESS_FILE  string = "pool/ip.txt"
	DEFAULT_PORT_FILE     string = "pool/ports.txt"
	DEFAULT_CONFIG_FILE   string = "pool/config.json"
	DEFAULT_SERVERS_FILE  string = "found_servers.txt"
	DEFAULT_CHANNELS_FILE string = "channels/all_channels.m3u8"
	DEFAULT_SUMMARY_FILE  string = "scan_summary.json"
)

const (
	DIR_PERM  = 0755
	FILE_PERM = 0644
)

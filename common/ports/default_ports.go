package ports

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/gopacket/layers"
)

const (
	// Ports Astra servers commonly listen on
	DEFAULT_HTTP     layers.TCPPort = 80
	DEFAULT_ASTRA    layers.TCPPort = 8000
	DEFAULT_WEB2     layers.TCPPort = 8080
	DEFAULT_WEB2_ALT layers.TCPPort = 8081
	DEFAULT_WEB3     layers.TCPPort = 8888
	DEFAULT_WEB4     layers.TCPPort = 9000
)

func GetDefaultPorts() *[]layers.TCPPort {
	return &[]layers.TCPPort{
		DEFAULT_HTTP,
		DEFAULT_WEB2,
		DEFAULT_WEB2_ALT,
		DEFAULT_ASTRA,
		DEFAULT_WEB3,
		DEFAULT_WEB4,
	}
}

// WriteDefault creates a port file holding the default ports, replacing
// any existing one.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, p := range *GetDefaultPorts() {
		w.WriteString(strconv.Itoa(int(p)) + "\n")
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

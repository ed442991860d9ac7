package ports

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/gopacket/layers"
)

// Parse reads one decimal port per line. Blank, non-numeric, zero and
// out-of-range lines are dropped.
func Parse(r io.Reader) ([]layers.TCPPort, error) {
	ret := []layers.TCPPort{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p, err := strconv.ParseUint(strings.TrimSpace(scanner.Text()), 10, 16)
		if err != nil || p == 0 {
			continue
		}
		ret = append(ret, layers.TCPPort(p))
	}
	return ret, scanner.Err()
}

func Load(path string) ([]layers.TCPPort, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// ParseSpec accepts "8000" or an inclusive range "8000-8010".
func ParseSpec(s string) ([]layers.TCPPort, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '-'); i != -1 {
		start, err := strconv.ParseUint(strings.TrimSpace(s[:i]), 10, 16)
		if err != nil || start == 0 {
			return nil, fmt.Errorf("unsupported PORT format: %s", s)
		}
		end, err := strconv.ParseUint(strings.TrimSpace(s[i+1:]), 10, 16)
		if err != nil || end < start {
			return nil, fmt.Errorf("unsupported PORT format: %s", s)
		}
		ret := make([]layers.TCPPort, 0, end-start+1)
		for p := start; p <= end; p++ {
			ret = append(ret, layers.TCPPort(p))
		}
		return ret, nil
	} else if p, err := strconv.ParseUint(s, 10, 16); err == nil && p != 0 {
		return []layers.TCPPort{layers.TCPPort(p)}, nil
	}
	return nil, fmt.Errorf("unsupported PORT format: %s", s)
}

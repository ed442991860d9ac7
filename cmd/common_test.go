package cmd_test

import (
	"testing"

	"github.com/LanXuage/astrascan/cmd"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddr(t *testing.T) {
	addrs, err := cmd.ParseAddr("192.168.1.1-3")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.168.1.1", "192.168.1.2", "192.168.1.3"}, addrs)

	addrs, err = cmd.ParseAddr("10.0.0.0/30")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0", "10.0.0.1", "10.0.0.2", "10.0.0.3"}, addrs)

	addrs, err = cmd.ParseAddr("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1"}, addrs)

	_, err = cmd.ParseAddr("192.168.1.9-3")
	assert.Error(t, err)
}

func TestParseAddrPrefixLimit(t *testing.T) {
	_, err := cmd.ParseAddr("::/64")
	assert.Error(t, err)

	_, err = cmd.ParseAddr("10.0.0.0/8")
	assert.Error(t, err)

	addrs, err := cmd.ParseAddr("10.1.0.0/16")
	require.NoError(t, err)
	assert.Len(t, addrs, 65536)
	assert.Equal(t, "10.1.255.255", addrs[len(addrs)-1])
}

func TestParsePorts(t *testing.T) {
	ports, err := cmd.ParsePorts([]string{"8000-8002", "8001,9000"})
	require.NoError(t, err)
	assert.Equal(t, []layers.TCPPort{8000, 8001, 8002, 9000}, ports)

	_, err = cmd.ParsePorts([]string{"http"})
	assert.Error(t, err)
}

package common

import (
	"fmt"
	"time"
)

// One formatter per user-facing message; arguments are positional by type,
// never substituted into a shared template.

func MsgScanStarting(addresses, ports int) string {
	return fmt.Sprintf("Starting scan of %d addresses across %d ports (%d targets)", addresses, ports, addresses*ports)
}

func MsgScanCompleted(elapsed time.Duration) string {
	return fmt.Sprintf("Scan completed in %s", FormatClock(elapsed))
}

func MsgTotalChecked(checked int64) string {
	return fmt.Sprintf("Total checked: %d", checked)
}

func MsgServersFound(servers int64) string {
	return fmt.Sprintf("Found servers: %d", servers)
}

func MsgChannelsFound(channels int64) string {
	return fmt.Sprintf("Working channels: %d", channels)
}

func MsgServerVerified(server string, total, working int) string {
	return fmt.Sprintf("Server %s: verified %d channels, %d working", server, total, working)
}

func MsgScanStopping() string {
	return "Stop requested, waiting for in-flight probes to finish"
}

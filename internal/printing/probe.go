package printing

import (
	"net"
	"strconv"
	"time"
)

// Probe attempts a TCP connection to a printer with a short timeout and
// reports only whether it succeeded. Every failure mode (refused, timeout,
// DNS) uniformly yields false; the probe never surfaces an error. The check
// is advisory for the operator UI and does not gate dispatch.
func Probe(ip string, port int, timeout time.Duration) bool {
	address := net.JoinHostPort(ip, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

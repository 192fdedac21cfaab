package printing

import (
	"net"
	"testing"
	"time"
)

func TestProbe_ReachableListener(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	addr := listener.Addr().(*net.TCPAddr)
	if !Probe(addr.IP.String(), addr.Port, time.Second) {
		t.Fatal("probe should reach the listener")
	}
}

func TestProbe_RefusedConnection(t *testing.T) {
	// Bind a port to learn a free one, then close it so the dial is refused.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().(*net.TCPAddr)
	listener.Close()

	if Probe(addr.IP.String(), addr.Port, time.Second) {
		t.Fatal("probe against a closed port must report false")
	}
}

package rpc

import (
	"fmt"
	"net"
	"time"

	"github.com/gavelrs/gavel/internal/backoff"
	"github.com/gavelrs/gavel/internal/lockfile"
	"github.com/gavelrs/gavel/internal/wire"
)

// baseRetryDelay seeds backoff.Next for a client's reconnect attempts.
const baseRetryDelay = 100 * time.Millisecond

// maxDialAttempts bounds how many times Call redials a socket that is
// refusing connections before giving up.
const maxDialAttempts = 5

// Client performs a single request/reply round trip per call, matching
// the daemon's one-request-one-reply-per-connection contract.
type Client struct {
	sockPath string
	pidPath  string
	timeout  time.Duration
}

// NewClient builds a Client dialing sockPath for every call. The
// daemon's lock file is assumed to live alongside the socket at
// sockPath + ".pid", matching cmd/gaveld's own naming.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath, pidPath: sockPath + ".pid", timeout: 5 * time.Second}
}

// Call opens a connection, sends req, reads one reply, and closes. If
// the daemon's lock file names a pid that is no longer alive, Call
// fails fast instead of redialing a socket nothing is listening on
// anymore. Otherwise a connection refused is retried with an
// exponential backoff, since it may just mean the daemon is mid-restart.
func (c *Client) Call(req wire.Request) (wire.Reply, error) {
	if stale, err := lockfile.Stale(c.pidPath); err == nil && stale {
		return wire.Reply{}, fmt.Errorf("daemon at %s is not running (stale lock file %s)", c.sockPath, c.pidPath)
	}

	var conn net.Conn
	var dialErr error
	for attempt := 0; ; attempt++ {
		conn, dialErr = net.DialTimeout("unix", c.sockPath, c.timeout)
		if dialErr == nil {
			break
		}
		if !backoff.ShouldRetry(attempt+1, maxDialAttempts) {
			return wire.Reply{}, fmt.Errorf("connect to daemon at %s: %w", c.sockPath, dialErr)
		}
		time.Sleep(backoff.Next(baseRetryDelay, attempt))
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	_ = conn.SetDeadline(deadline)

	if err := wire.WriteRequest(conn, req); err != nil {
		return wire.Reply{}, fmt.Errorf("send request: %w", err)
	}
	reply, err := wire.ReadReply(conn)
	if err != nil {
		return wire.Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}

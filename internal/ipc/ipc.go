// Package ipc provides the local Unix-socket channel the cliptrail CLI tools
// (history, status) use to query a running watch daemon.
//
// Each connection carries exactly one request and one response, framed by
// package wire. Windows 10 and later support AF_UNIX sockets, so the same
// transport is used on every platform.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.klb.dev/cliptrail/internal/message"
	"go.klb.dev/cliptrail/internal/wire"
)

const (
	socketName  = "cliptrail.sock"
	readTimeout = 5 * time.Second
)

// SocketPath returns the path of the IPC socket.
//
//   - $CLIPTRAIL_SOCKET when set
//   - $XDG_RUNTIME_DIR/cliptrail.sock on Linux desktops
//   - $TMPDIR/cliptrail.sock otherwise
func SocketPath() string {
	if s := os.Getenv("CLIPTRAIL_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, socketName)
	}
	return filepath.Join(os.TempDir(), socketName)
}

// IsRunning reports whether a cliptrail daemon appears to be listening on
// the IPC socket. It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := net.DialTimeout("unix", SocketPath(), time.Second)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// ErrAlreadyRunning is returned by Listen when another daemon answers on
// the socket path.
var ErrAlreadyRunning = errors.New("cliptrail daemon already running")

// Listen creates and returns a net.Listener on the IPC socket path. A socket
// file left by a crashed run is removed first; a live one is left alone and
// ErrAlreadyRunning is returned.
func Listen() (net.Listener, error) {
	path := SocketPath()
	if IsRunning() {
		return nil, fmt.Errorf("%s: %w", path, ErrAlreadyRunning)
	}
	_ = os.Remove(path)
	return net.Listen("unix", path)
}

// Handler answers one request.
type Handler interface {
	Handle(req *message.Message) *message.Message
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req *message.Message) *message.Message

func (f HandlerFunc) Handle(req *message.Message) *message.Message { return f(req) }

// Serve accepts connections on ln until ctx ends, then closes ln and
// returns nil. Any other accept failure is returned.
func Serve(ctx context.Context, ln net.Listener, h Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("ipc accept: %w", err)
		}
		go handleConn(conn, h)
	}
}

func handleConn(conn net.Conn, h Handler) {
	wc := wire.New(conn)
	defer wc.Close()

	wc.SetReadDeadline(readTimeout)
	req, err := wc.ReadMsg()
	if err != nil {
		slog.Debug("ipc: bad request", "err", err)
		_ = wc.WriteMsg(message.Errorf("bad request: %v", err))
		return
	}
	wc.SetReadDeadline(0)

	resp := h.Handle(req)
	if resp == nil {
		resp = message.Errorf("unsupported request type %q", req.Type)
	}
	err = wc.WriteMsg(resp)
	if errors.Is(err, wire.ErrTooLarge) {
		slog.Warn("ipc: response too large", "type", resp.Type, "err", err)
		err = wc.WriteMsg(message.Errorf("response too large for one message; request fewer entries or clipped content"))
	}
	if err != nil {
		slog.Debug("ipc: write response failed", "type", req.Type, "err", err)
	}
}

// Request sends req to the daemon and returns its response. An ERROR
// response is returned as a Go error.
func Request(ctx context.Context, req *message.Message) (*message.Message, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", SocketPath())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", SocketPath(), err)
	}
	wc := wire.New(conn)
	defer wc.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	if err := wc.WriteMsg(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Type, err)
	}
	resp, err := wc.ReadMsg()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.Type == message.TypeError {
		return nil, fmt.Errorf("daemon: %s", resp.Error)
	}
	return resp, nil
}

// Package ipc provides the two local transports described in §4.2: a
// request/response control channel over a Unix domain socket, and a
// bulk/file message channel backed by fsnotify for streamed events.
package ipc

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/nupi-ai/go-ttsd/internal/ipcmsg"
)

// Mode selects which of the three parallel daemon instances a handle binds
// to (§6 "three names total").
type Mode int

const (
	Default Mode = iota
	Notification
	ScreenReader
)

func (m Mode) String() string {
	switch m {
	case Default:
		return "default"
	case Notification:
		return "notification"
	case ScreenReader:
		return "screen-reader"
	default:
		return "unknown-mode"
	}
}

// SocketPath returns the control-channel socket path for mode under root.
func SocketPath(root string, mode Mode) string {
	return filepath.Join(root, fmt.Sprintf("ttsd-%s.sock", mode))
}

// Handler processes one control-channel request and returns the response to
// send back.
type Handler func(ipcmsg.Request) ipcmsg.Response

// Server accepts connections on a Unix domain socket and dispatches each
// framed request to Handler, one goroutine per connection.
type Server struct {
	listener net.Listener
	handler  Handler
}

// Listen creates (or replaces) the socket at path and starts accepting.
func Listen(path string, handler Handler) (*Server, error) {
	_ = os.Remove(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ipc: mkdir socket dir: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen %s: %w", path, err)
	}
	s := &Server{listener: ln, handler: handler}
	go s.acceptLoop()
	return s, nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	r := ipcmsg.NewReader(conn)
	w := ipcmsg.NewWriter(conn)
	for {
		var req ipcmsg.Request
		if err := r.ReadJSON(&req); err != nil {
			return
		}
		resp := s.handler(req)
		if err := w.WriteJSON(resp); err != nil {
			return
		}
	}
}

// Addr returns the socket path this server is listening on.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Close stops accepting connections.
func (s *Server) Close() error { return s.listener.Close() }

// Client is a persistent connection to a control-channel Server.
type Client struct {
	conn net.Conn
	r    *ipcmsg.Reader
	w    *ipcmsg.Writer
}

// Dial connects to the control-channel socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, r: ipcmsg.NewReader(conn), w: ipcmsg.NewWriter(conn)}, nil
}

// Call sends req and returns the matching response. The control channel is
// strictly request/response, so one Call must complete before the next is
// issued on the same Client.
func (c *Client) Call(req ipcmsg.Request) (ipcmsg.Response, error) {
	var resp ipcmsg.Response
	if err := c.w.WriteJSON(req); err != nil {
		return resp, err
	}
	if err := c.r.ReadJSON(&resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

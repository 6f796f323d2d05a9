package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

const defaultReadTimeout = 2 * time.Second

// Handler processes one validated command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Server answers one request per connection. Malformed or unknown commands
// are refused before they reach Handler.
type Server struct {
	Handler Handler
	Logger  *slog.Logger
	// ReadTimeout bounds how long a client may take to send its request.
	// Zero means two seconds.
	ReadTimeout time.Duration
}

// Serve accepts clients until ctx is cancelled or the listener closes, then
// waits for in-flight connections.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s.Handler == nil {
		return errors.New("ipc server requires a handler")
	}
	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept ipc connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	started := time.Now()
	timeout := s.ReadTimeout
	if timeout <= 0 {
		timeout = defaultReadTimeout
	}
	_ = conn.SetReadDeadline(started.Add(timeout))

	req, err := readRequest(conn)
	var resp Response
	if err != nil {
		resp = Reject(err)
	} else {
		resp = s.Handler.Handle(ctx, req)
	}
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.log(slog.LevelWarn, "ipc reply failed", "command", req.Command, "error", err.Error())
		return
	}

	attrs := []any{"command", req.Command, "ok", resp.OK, "elapsed_ms", time.Since(started).Milliseconds()}
	if !resp.OK {
		s.log(slog.LevelWarn, "ipc request refused", append(attrs, "error", resp.Error)...)
		return
	}
	s.log(slog.LevelDebug, "ipc request", attrs...)
}

func (s *Server) log(level slog.Level, msg string, attrs ...any) {
	if s.Logger == nil {
		return
	}
	s.Logger.Log(context.Background(), level, msg, attrs...)
}

// readRequest decodes, normalizes and validates one request line.
func readRequest(r io.Reader) (Request, error) {
	line, err := bufio.NewReader(io.LimitReader(r, MaxRequestBytes+1)).ReadBytes('\n')
	if err != nil {
		if len(line) > MaxRequestBytes {
			return Request{}, fmt.Errorf("request exceeds %d bytes", MaxRequestBytes)
		}
		return Request{}, fmt.Errorf("read request: %w", err)
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

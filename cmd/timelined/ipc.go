package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// One JSON object per line in both directions.
//
// Requests:
//   {"type":"<event>","data":{...}}  queue a timeline event or daemon input
//   {"type":"state"}                 reply with the current snapshot
//   {"type":"ping"}                  liveness check
//
// Replies:
//   {"status":"ok"} | {"status":"ok","state":{...}} | {"status":"error","error":"..."}
// ============================================================================

// IPCResponse is the reply to one IPC line. HTTP /events reuses it.
type IPCResponse struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	State  *StateSnapshot `json:"state,omitempty"`
}

func ipcOK() IPCResponse { return IPCResponse{Status: "ok"} }

func ipcError(format string, args ...any) IPCResponse {
	return IPCResponse{Status: "error", Error: fmt.Sprintf(format, args...)}
}

var errInputQueueFull = errors.New("input queue full")

// submitInput hands in to the daemon loop without blocking.
func submitInput(inputs chan<- Input, in Input) error {
	select {
	case inputs <- in:
		return nil
	default:
		return errInputQueueFull
	}
}

const (
	ipcSnapshotTimeout = time.Second
	ipcMaxLine         = 64 << 10
)

// runIPCServer listens on socketPath until ctx is canceled. A stale socket
// file from a previous run is replaced.
func runIPCServer(ctx context.Context, socketPath string, inputs chan<- Input, logger *slog.Logger) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0666); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}
			logger.Error("IPC accept error", "error", err)
			continue
		}
		go handleIPCConnection(ctx, conn, inputs, logger.With("remote_addr", conn.RemoteAddr().String()))
	}
}

// handleIPCConnection serves one client until it disconnects.
func handleIPCConnection(ctx context.Context, conn net.Conn, inputs chan<- Input, logger *slog.Logger) {
	s := &ipcSession{conn: conn, inputs: inputs, logger: logger}
	s.serve(ctx)
}

type ipcSession struct {
	conn   net.Conn
	inputs chan<- Input
	logger *slog.Logger
}

func (s *ipcSession) serve(ctx context.Context) {
	defer s.conn.Close()
	s.logger.Debug("IPC connection opened")
	defer s.logger.Debug("IPC connection closed")

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, 4096), ipcMaxLine)
	enc := json.NewEncoder(s.conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.handle(ctx, line)
		if err := enc.Encode(resp); err != nil {
			s.logger.Warn("IPC reply failed", "error", err)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("IPC read failed", "error", err)
	}
}

func (s *ipcSession) handle(ctx context.Context, line []byte) IPCResponse {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return ipcError("parse event: %v", err)
	}
	s.logger.Debug("IPC request", "type", head.Type)

	switch head.Type {
	case "ping":
		return ipcOK()
	case "state":
		snap, err := requestSnapshot(ctx, s.inputs, ipcSnapshotTimeout)
		if err != nil {
			return ipcError("snapshot: %v", err)
		}
		resp := ipcOK()
		resp.State = &snap
		return resp
	}

	in, err := DecodeInput(line)
	if err != nil {
		return ipcError("parse event: %v", err)
	}
	if err := submitInput(s.inputs, in); err != nil {
		return ipcError("%v", err)
	}
	return ipcOK()
}

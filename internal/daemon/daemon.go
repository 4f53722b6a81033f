package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/yonca-ai/yonca/internal/logger"
	"github.com/yonca-ai/yonca/internal/router"
	"github.com/yonca-ai/yonca/internal/session"
	"github.com/yonca-ai/yonca/pkg/protocol"
)

// Daemon serves chat turns over a unix socket. Requests on one session are
// processed strictly one at a time; the router and trackers assume no
// overlapping mutation.
type Daemon struct {
	socketPath   string
	listener     net.Listener
	router       *router.Router
	sessions     *session.Store
	conns        map[*jsonrpc2.Conn]bool
	connMu       sync.Mutex
	turnMu       sync.Mutex
	shutdown     chan struct{}
	shutdownOnce sync.Once
	startTime    time.Time
	log          *slog.Logger
}

func NewDaemon(socketPath string, r *router.Router, sessions *session.Store) *Daemon {
	return &Daemon{
		socketPath: socketPath,
		router:     r,
		sessions:   sessions,
		conns:      make(map[*jsonrpc2.Conn]bool),
		shutdown:   make(chan struct{}),
		startTime:  time.Now(),
		log:        logger.ForComponent("daemon"),
	}
}

// Start binds the socket and begins accepting connections. It does not
// block; use Wait to park until a shutdown signal arrives.
func (d *Daemon) Start() error {
	if err := os.MkdirAll(filepath.Dir(d.socketPath), 0o700); err != nil {
		return fmt.Errorf("creating socket dir: %w", err)
	}
	if err := os.Remove(d.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}

	listener, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", d.socketPath, err)
	}
	d.listener = listener
	if err := os.Chmod(d.socketPath, 0o700); err != nil {
		return fmt.Errorf("restricting socket: %w", err)
	}

	go d.acceptConnections()
	d.log.Info("listening", "socket", d.socketPath)
	return nil
}

// Wait blocks until SIGINT or SIGTERM, then shuts the daemon down.
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		d.log.Info("received signal", "signal", sig.String())
	case <-d.shutdown:
	}
	d.Shutdown()
}

func (d *Daemon) acceptConnections() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.shutdown:
				return
			default:
				continue
			}
		}

		stream := jsonrpc2.NewPlainObjectStream(conn)
		rpcConn := jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(d.handle))

		d.connMu.Lock()
		d.conns[rpcConn] = true
		d.connMu.Unlock()

		go func() {
			<-rpcConn.DisconnectNotify()
			d.connMu.Lock()
			delete(d.conns, rpcConn)
			d.connMu.Unlock()
		}()
	}
}

func (d *Daemon) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case protocol.MethodChatSend:
		var params protocol.ChatSendParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return d.chatSend(ctx, params)

	case protocol.MethodChatHistory:
		var params protocol.ChatHistoryParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return d.chatHistory(params)

	case protocol.MethodHealthCheck:
		return protocol.HealthResult{
			Status:  "ok",
			Uptime:  time.Since(d.startTime).Round(time.Second).String(),
			Domains: d.router.Targets(),
		}, nil

	default:
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("unknown method %q", req.Method),
		}
	}
}

func (d *Daemon) chatSend(ctx context.Context, params protocol.ChatSendParams) (protocol.ChatSendResult, error) {
	sessionID := params.SessionID
	if sessionID == "" {
		sessionID = session.NewSessionID()
	}

	// One turn at a time, across all connections.
	d.turnMu.Lock()
	defer d.turnMu.Unlock()

	d.log.Debug("processing turn", "session", sessionID)
	response := d.router.Route(ctx, params.Request)

	if err := d.sessions.Append(sessionID, "user", params.Request); err != nil {
		d.log.Error("recording request failed", "error", err)
	}
	if err := d.sessions.Append(sessionID, "assistant", response); err != nil {
		d.log.Error("recording response failed", "error", err)
	}

	return protocol.ChatSendResult{SessionID: sessionID, Response: response}, nil
}

func (d *Daemon) chatHistory(params protocol.ChatHistoryParams) (protocol.ChatHistoryResult, error) {
	turns, err := d.sessions.Recent(params.SessionID, params.Limit)
	if err != nil {
		return protocol.ChatHistoryResult{}, err
	}

	result := protocol.ChatHistoryResult{}
	for _, t := range turns {
		result.Turns = append(result.Turns, protocol.HistoryTurn{
			Role:      t.Role,
			Content:   t.Content,
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
		})
	}
	return result, nil
}

func (d *Daemon) Shutdown() {
	d.shutdownOnce.Do(func() {
		close(d.shutdown)

		if d.listener != nil {
			d.listener.Close()
		}

		d.connMu.Lock()
		for conn := range d.conns {
			conn.Close()
		}
		d.connMu.Unlock()

		os.Remove(d.socketPath)
		d.log.Info("shut down")
	})
}

func (d *Daemon) SocketPath() string {
	return d.socketPath
}

func (d *Daemon) Uptime() time.Duration {
	return time.Since(d.startTime)
}

func unmarshalParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

package daemon

import (
	"context"
	"fmt"
	"net"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/yonca-ai/yonca/pkg/protocol"
)

// Client is the chat-side end of the daemon socket.
type Client struct {
	conn *jsonrpc2.Conn
}

// Dial connects to a running daemon.
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to daemon: %w", err)
	}
	stream := jsonrpc2.NewPlainObjectStream(conn)
	return &Client{conn: jsonrpc2.NewConn(ctx, stream, noopHandler{})}, nil
}

func (c *Client) Send(ctx context.Context, sessionID, request string) (protocol.ChatSendResult, error) {
	var result protocol.ChatSendResult
	err := c.conn.Call(ctx, protocol.MethodChatSend, protocol.ChatSendParams{
		SessionID: sessionID,
		Request:   request,
	}, &result)
	return result, err
}

func (c *Client) History(ctx context.Context, sessionID string, limit int) (protocol.ChatHistoryResult, error) {
	var result protocol.ChatHistoryResult
	err := c.conn.Call(ctx, protocol.MethodChatHistory, protocol.ChatHistoryParams{
		SessionID: sessionID,
		Limit:     limit,
	}, &result)
	return result, err
}

func (c *Client) Health(ctx context.Context) (protocol.HealthResult, error) {
	var result protocol.HealthResult
	err := c.conn.Call(ctx, protocol.MethodHealthCheck, struct{}{}, &result)
	return result, err
}

func (c *Client) Close() error {
	return c.conn.Close()
}

type noopHandler struct{}

func (noopHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {}

// Package protocol defines the wire types exchanged between the yonca
// client and the daemon over the unix socket. Transport is JSON-RPC 2.0,
// newline-delimited plain objects.
package protocol

// RPC method names.
const (
	MethodChatSend    = "chat.send"
	MethodChatHistory = "chat.history"
	MethodHealthCheck = "health.check"
)

// ChatSendParams carries one user turn. An empty SessionID asks the daemon
// to open a fresh session.
type ChatSendParams struct {
	SessionID string `json:"session_id,omitempty"`
	Request   string `json:"request"`
}

type ChatSendResult struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

type ChatHistoryParams struct {
	SessionID string `json:"session_id"`
	Limit     int    `json:"limit,omitempty"`
}

type HistoryTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type ChatHistoryResult struct {
	Turns []HistoryTurn `json:"turns"`
}

type HealthResult struct {
	Status  string   `json:"status"`
	Uptime  string   `json:"uptime"`
	Domains []string `json:"domains"`
}

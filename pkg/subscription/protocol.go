// Package subscription fans settlement events out to websocket clients.
// The wire protocol follows the JSON-RPC subscription conventions of
// Solana's pubsub endpoint: accountSubscribe/accountUnsubscribe against a
// pool address, plus a settlementSubscribe firehose for every event.
package subscription

import "encoding/json"

// RPCRequest is a JSON-RPC request from a client.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      uint64            `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// RPCResponse answers one request.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError carries a request failure.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NotificationMessage pushes subscription data to a client.
type NotificationMessage struct {
	JSONRPC string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  NotificationParams `json:"params"`
}

// NotificationParams wraps the payload with its subscription ID.
type NotificationParams struct {
	Result       interface{} `json:"result"`
	Subscription uint64      `json:"subscription"`
}

// AccountNotification is the result payload of accountNotification.
type AccountNotification struct {
	Context NotificationContext `json:"context"`
	Value   AccountValue        `json:"value"`
}

// NotificationContext carries the engine sequence the update committed at.
type NotificationContext struct {
	Sequence uint64 `json:"sequence"`
}

// AccountValue holds the serialized pool account: [data, encoding].
type AccountValue struct {
	Data  [2]string `json:"data"`
	Owner string    `json:"owner"`
}

package ledger

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC 2.0 method names understood by the ledger service.
const (
	MethodBalance      = "yap_balance"
	MethodLastIssuance = "yap_lastIssuance"
	MethodSubmit       = "yap_submit"
)

// RPC error codes returned by the ledger service.
const (
	CodeRejected      = -32001 // request refused (cooldown, duplicate ref)
	CodeUnknownMethod = -32601
	CodeInvalidParams = -32602
	CodeInternal      = -32603 // server-side failure, safe to retry later
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Wire shapes for the three RPCs.

type BalanceParams struct {
	Account string `json:"account"`
}

type BalanceResult struct {
	Balance string `json:"balance"`
}

type LastIssuanceParams struct {
	Account string `json:"account"`
}

type LastIssuanceResult struct {
	Timestamp int64 `json:"timestamp"`
}

type SubmitParams struct {
	Account  string `json:"account"`
	Handle   string `json:"handle"`
	RawScore uint64 `json:"raw_score"`
}

type SubmitResult struct {
	SettlementRef string `json:"settlement_ref"`
	Amount        uint64 `json:"amount"`
	Timestamp     int64  `json:"timestamp"`
}

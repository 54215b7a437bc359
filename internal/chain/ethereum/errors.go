package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// Failure kinds. Every *Error wraps exactly one of them.
var (
	ErrConnection           = errors.New("node connection error")
	ErrResponse             = errors.New("node response error")
	ErrExecution            = errors.New("transaction execution error")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrTooManyTransactions  = errors.New("too many transactions in node queue")
	ErrInsufficientGasLimit = errors.New("amount exceeds gas limit bound")
)

// Error is a classified node failure carrying the provider's code, message and raw data.
type Error struct {
	Kind    error
	Code    int
	Message string
	Data    string
}

func (e *Error) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("%s: %d %s (%s)", e.Kind, e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("%s: %d %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// rule matches node error text. Node software words these differently, keep the table
// ordered from most to least specific and covered by literal tests.
type rule struct {
	kind  error
	match func(message, data string) bool
}

var rules = []rule{
	{ErrInsufficientGasLimit, func(m, d string) bool {
		return strings.Contains(m, "Transaction execution error") && strings.Contains(d, "Requires higher than upper limit")
	}},
	{ErrExecution, func(m, _ string) bool { return strings.Contains(m, "Transaction execution error") }},
	{ErrExecution, func(m, _ string) bool { return strings.Contains(m, "The execution failed due to an exception") }},
	{ErrInsufficientFunds, func(m, _ string) bool { return strings.Contains(strings.ToLower(m), "insufficient funds") }},
	{ErrTooManyTransactions, func(m, _ string) bool {
		return strings.Contains(m, "There are too many transactions in the queue")
	}},
	{ErrTooManyTransactions, func(m, _ string) bool { return strings.Contains(m, "txpool is full") }},
	{ErrExecution, func(m, _ string) bool { return strings.Contains(m, "execution reverted") }},
}

// Classify maps a JSON-RPC error object onto a failure kind. Unmatched messages are ErrResponse.
func Classify(code int, message, data string) *Error {
	kind := ErrResponse
	for _, r := range rules {
		if r.match(message, data) {
			kind = r.kind
			break
		}
	}
	return &Error{Kind: kind, Code: code, Message: message, Data: data}
}

// classify turns whatever the rpc layer returned into an *Error.
func classify(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		data := ""
		var dataErr rpc.DataError
		if errors.As(err, &dataErr) {
			data = formatData(dataErr.ErrorData())
		}
		return Classify(rpcErr.ErrorCode(), rpcErr.Error(), data)
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return &Error{Kind: ErrConnection, Code: httpErr.StatusCode, Message: httpErr.Status, Data: string(httpErr.Body)}
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: ErrConnection, Message: err.Error()}
	}

	// undecodable bodies and the like
	return &Error{Kind: ErrResponse, Message: err.Error()}
}

func formatData(v interface{}) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return fmt.Sprint(d)
		}
		return string(b)
	}
}

// Retryable reports whether the next scheduled attempt may succeed without operator action.
func Retryable(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrTooManyTransactions)
}

// KindName is a stable label for metrics and logs.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrInsufficientGasLimit):
		return "insufficient_gas_limit"
	case errors.Is(err, ErrExecution):
		return "execution"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrTooManyTransactions):
		return "too_many_transactions"
	case errors.Is(err, ErrResponse):
		return "response"
	default:
		return "unknown"
	}
}

package main

import (
	"fmt"
	"strconv"
)

// stratumRequest is every line the client sends.
type stratumRequest struct {
	ID     uint64 `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// stratumMessage is every line the pool sends: a notification when Method is
// set, otherwise a response to one of our requests.
type stratumMessage struct {
	ID     any    `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
	Result any    `json:"result"`
	Error  any    `json:"error"`
}

type sessionState int32

const (
	sessionDisconnected sessionState = iota
	sessionConnecting
	sessionConnected
	sessionSubscribed
	sessionAuthorized
	sessionMining
	sessionReconnecting
	sessionStopped
)

func (s sessionState) String() string {
	switch s {
	case sessionDisconnected:
		return "disconnected"
	case sessionConnecting:
		return "connecting"
	case sessionConnected:
		return "connected"
	case sessionSubscribed:
		return "subscribed"
	case sessionAuthorized:
		return "authorized"
	case sessionMining:
		return "mining"
	case sessionReconnecting:
		return "reconnecting"
	case sessionStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

func (s sessionState) authorized() bool {
	return s == sessionAuthorized || s == sessionMining
}

// parseMessageID accepts numeric and numeric-string ids; some pools echo
// ids back as strings.
func parseMessageID(id any) (uint64, bool) {
	switch v := id.(type) {
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return 0, false
		}
		return uint64(v), true
	case int:
		return uint64(v), v >= 0
	case int64:
		return uint64(v), v >= 0
	case uint64:
		return v, true
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func jsonNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// stratumErrorText renders the [code, message, data] error triple.
func stratumErrorText(e any) string {
	switch v := e.(type) {
	case nil:
		return ""
	case []any:
		if len(v) >= 2 {
			if msg, ok := v[1].(string); ok {
				if code, ok := jsonNumber(v[0]); ok {
					return fmt.Sprintf("%s (code %d)", msg, int(code))
				}
				return msg
			}
		}
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	case string:
		return v
	}
	return fmt.Sprint(e)
}

package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Response is one reply from the rules engine: a success flag plus either a
// game state snapshot or an error description.
type Response struct {
	Success   bool      `json:"success"`
	GameState *Snapshot `json:"gameState,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// DecodeResponse parses one newline-terminated JSON line into a Response.
// The returned error indicates a malformed line, never a domain-level engine
// failure (those arrive as well-formed responses with Success=false).
func DecodeResponse(line string) (Response, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Response{}, fmt.Errorf("decode response: empty line")
	}

	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// EncodeResponse serializes a response to one newline-terminated JSON line.
// Used by engine stubs and the gateway; the bridge itself only decodes.
func EncodeResponse(resp Response) (string, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("encode response: %w", err)
	}
	return string(data) + "\n", nil
}

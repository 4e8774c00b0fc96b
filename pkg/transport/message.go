// Package transport serves dispatch requests over a mangos REQ/REP socket,
// for callers that keep a long-lived connection instead of issuing HTTP
// requests. Any mangos transport URL works: tcp://, ipc://, inproc:// or
// ws://.
//
// Every frame is a snappy block holding one JSON document.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-graphpart/pkg/server"
	"github.com/dd0wney/cluso-graphpart/pkg/validation"
)

// Request is one dispatch call. Token and APIKey carry the same
// credentials as the HTTP Authorization and X-API-Key headers.
type Request struct {
	ID       string                      `json:"id,omitempty"`
	Token    string                      `json:"token,omitempty"`
	APIKey   string                      `json:"api_key,omitempty"`
	Quality  bool                        `json:"quality,omitempty"`
	Dispatch *validation.DispatchRequest `json:"dispatch"`
}

// Response answers a Request. Exactly one of Result and Error is set.
type Response struct {
	ID     string                   `json:"id"`
	Result *server.DispatchResponse `json:"result,omitempty"`
	Error  *server.ErrorResponse    `json:"error,omitempty"`
}

// RemoteError is a failure reported by the serving side.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

func encodeFrame(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, data), nil
}

const (
	// DefaultMaxFrameBytes bounds the decompressed size of a request frame
	// when Config leaves it zero. It matches the HTTP body limit.
	DefaultMaxFrameBytes = server.DefaultMaxBodyBytes
	// maxReplyBytes bounds the decompressed size of a reply on the client.
	maxReplyBytes = 1 << 30
)

// ErrFrameTooLarge is returned for frames whose declared decompressed
// length exceeds the limit. Nothing is allocated for them.
var ErrFrameTooLarge = errors.New("frame too large")

// decodeFrame decompresses and unmarshals one frame. The length declared
// in the snappy header is checked against limit before decompressing.
func decodeFrame(frame []byte, v any, limit int64) error {
	n, err := snappy.DecodedLen(frame)
	if err != nil {
		return fmt.Errorf("decompress frame: %w", err)
	}
	if int64(n) > limit {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, n, limit)
	}
	data, err := snappy.Decode(make([]byte, n), frame)
	if err != nil {
		return fmt.Errorf("decompress frame: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	return nil
}

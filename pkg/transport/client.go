package transport

import (
	"context"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/req"

	"github.com/dd0wney/cluso-graphpart/pkg/server"
)

// DefaultTimeout bounds a call whose context has no deadline.
const DefaultTimeout = 5 * time.Minute

// Client sends Requests over a REQ socket. It is safe for concurrent use;
// each call runs on its own socket context.
type Client struct {
	sock    mangos.Socket
	timeout time.Duration
}

// Dial connects to a transport Server. A zero timeout means DefaultTimeout.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	sock, err := req.NewSocket()
	if err != nil {
		return nil, err
	}
	if err := sock.Dial(addr); err != nil {
		sock.Close()
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{sock: sock, timeout: timeout}, nil
}

// Call sends r and waits for the answer. A serving-side failure comes
// back as a *RemoteError.
func (c *Client) Call(ctx context.Context, r *Request) (*server.DispatchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame, err := encodeFrame(r)
	if err != nil {
		return nil, err
	}

	mctx, err := c.sock.OpenContext()
	if err != nil {
		return nil, err
	}
	defer mctx.Close()

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := mctx.SetOption(mangos.OptionSendDeadline, timeout); err != nil {
		return nil, err
	}
	if err := mctx.SetOption(mangos.OptionRecvDeadline, timeout); err != nil {
		return nil, err
	}

	if err := mctx.Send(frame); err != nil {
		return nil, err
	}
	reply, err := mctx.Recv()
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := decodeFrame(reply, &resp, maxReplyBytes); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, &RemoteError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	return resp.Result, nil
}

// Close releases the socket.
func (c *Client) Close() error {
	return c.sock.Close()
}

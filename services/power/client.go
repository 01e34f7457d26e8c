package power

import (
	"context"
	"errors"
	"time"

	"ampctl-go/bus"
	"ampctl-go/errcode"
	"ampctl-go/services/topics"
	"ampctl-go/types"
)

// DefaultRequestTimeout bounds a round trip through the power loop.
const DefaultRequestTimeout = time.Second

// Client sends power/cmd requests on behalf of the console and web surfaces.
type Client struct {
	conn    *bus.Connection
	timeout time.Duration
}

func NewClient(conn *bus.Connection, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{conn: conn, timeout: timeout}
}

// Do sends verb and waits for the loop to answer with the resulting status.
func (c *Client) Do(ctx context.Context, verb types.PowerVerb, source string) (types.PowerStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg := c.conn.NewMessage(topics.PowerVerb(string(verb)), types.PowerCommand{Source: source}, false)
	reply, err := c.conn.RequestWait(ctx, msg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return types.PowerStatus{}, errcode.Wrap(errcode.Timeout, "power."+string(verb), err)
		}
		return types.PowerStatus{}, err
	}
	pr, ok := reply.Payload.(types.PowerReply)
	if !ok {
		return types.PowerStatus{}, errcode.InvalidPayload
	}
	if !pr.OK {
		return pr.Status, errcode.Code(pr.Code)
	}
	return pr.Status, nil
}

func (c *Client) Trigger(ctx context.Context, source string) (types.PowerStatus, error) {
	return c.Do(ctx, types.VerbTrigger, source)
}

func (c *Client) ForceShutdown(ctx context.Context, source string) (types.PowerStatus, error) {
	return c.Do(ctx, types.VerbForceShutdown, source)
}

func (c *Client) Status(ctx context.Context) (types.PowerStatus, error) {
	return c.Do(ctx, types.VerbStatus, "")
}

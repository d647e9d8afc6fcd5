package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/daychat/internal/chat"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultTimeout bounds each call when Dial is given a non-positive timeout.
const DefaultTimeout = 10 * time.Second

// Client talks to a feed daemon over its Unix domain socket. It implements
// chat.Feed. A timed-out call is returned as an ordinary error.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// Dial connects to the feed service listening on socketPath. The connection
// is established lazily on the first call.
func Dial(socketPath string, timeout time.Duration) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial feed: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

// LoadMessages fetches one page of history.
func (c *Client) LoadMessages(ctx context.Context, pageNumber int) (*chat.Page, error) {
	resp := new(LoadMessagesResponse)
	if err := c.invoke(ctx, "LoadMessages", &LoadMessagesRequest{PageNumber: pageNumber}, resp); err != nil {
		return nil, fmt.Errorf("load page %d: %w", pageNumber, err)
	}
	return resp, nil
}

// SendMessage submits text as the session owner and returns the server ID.
func (c *Client) SendMessage(ctx context.Context, text string) (string, error) {
	resp := new(SendMessageResponse)
	if err := c.invoke(ctx, "SendMessage", &SendMessageRequest{Text: text}, resp); err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return resp.MessageID, nil
}

// Post stores a message from sender. A zero at means the server's clock.
func (c *Client) Post(ctx context.Context, sender, text string, at time.Time) (string, error) {
	req := &PostMessageRequest{Sender: sender, Text: text}
	if !at.IsZero() {
		req.DateTime = at.Format(time.RFC3339)
	}
	resp := new(PostMessageResponse)
	if err := c.invoke(ctx, "PostMessage", req, resp); err != nil {
		return "", fmt.Errorf("post message: %w", err)
	}
	return resp.MessageID, nil
}

// Import stores msgs, skipping IDs already present, and returns how many
// were inserted.
func (c *Client) Import(ctx context.Context, msgs []chat.RawMessage) (int, error) {
	resp := new(ImportMessagesResponse)
	if err := c.invoke(ctx, "ImportMessages", &ImportMessagesRequest{Messages: msgs}, resp); err != nil {
		return 0, fmt.Errorf("import messages: %w", err)
	}
	return resp.Imported, nil
}

// Ping reports whether the daemon answers its health check.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("health check: feed is %s", resp.GetStatus())
	}
	return nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.conn.Invoke(ctx, fullMethod(method), req, resp, grpc.CallContentSubtype(codecName))
}

// Interface guard.
var _ chat.Feed = (*Client)(nil)

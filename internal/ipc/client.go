package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"github.com/google/uuid"

	"wiretap/internal/config"
	"wiretap/internal/logging"
	"wiretap/internal/wiretap"
)

const defaultDialTimeout = 2 * time.Second

// Client provides RPC access to a gateway. It implements wiretap.PathBackend.
type Client struct {
	conn      net.Conn
	client    *rpc.Client
	sessionID string
	timeout   time.Duration
}

// Dial connects to the gateway at address, either host:port or unix:<path>.
// A zero timeout uses the default dial timeout and leaves calls unbounded
// except by their context.
func Dial(ctx context.Context, address string, timeout time.Duration) (*Client, error) {
	network, addr := splitAddress(address)
	dialTimeout := timeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient, sessionID: uuid.NewString(), timeout: timeout}, nil
}

// SessionID returns the identifier announced in Hello.
func (c *Client) SessionID() string { return c.sessionID }

// Hello opens the session. It must precede every other call.
func (c *Client) Hello(ctx context.Context, version, hostname string) (*HelloResponse, error) {
	var resp HelloResponse
	req := HelloRequest{SessionID: c.sessionID, Version: version, Hostname: hostname}
	if err := c.call(ctx, "Hello", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Close ends the session and closes the underlying connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()
	_ = c.call(ctx, "Goodbye", SessionRequest{SessionID: c.sessionID}, &Empty{})
	err := c.client.Close()
	c.client = nil
	if errors.Is(err, rpc.ErrShutdown) {
		return nil
	}
	return err
}

func (c *Client) Lookup(ctx context.Context, path string) (wiretap.NodeInfo, error) {
	var resp NodeResponse
	if err := c.call(ctx, "Lookup", PathRequest{SessionID: c.sessionID, Path: path}, &resp); err != nil {
		return wiretap.NodeInfo{}, err
	}
	return resp.Node, nil
}

func (c *Client) Children(ctx context.Context, path string) ([]wiretap.NodeInfo, error) {
	var resp ChildrenResponse
	if err := c.call(ctx, "Children", PathRequest{SessionID: c.sessionID, Path: path}, &resp); err != nil {
		return nil, err
	}
	return resp.Children, nil
}

func (c *Client) CreateChild(ctx context.Context, parentPath, name string, nodeType wiretap.NodeType) (wiretap.NodeInfo, error) {
	var resp NodeResponse
	req := CreateChildRequest{SessionID: c.sessionID, ParentPath: parentPath, Name: name, Type: nodeType}
	if err := c.call(ctx, "CreateChild", req, &resp); err != nil {
		return wiretap.NodeInfo{}, err
	}
	return resp.Node, nil
}

func (c *Client) SetMetadata(ctx context.Context, path, stream, data string) error {
	req := MetadataRequest{SessionID: c.sessionID, Path: path, Stream: stream, Data: data}
	return c.call(ctx, "SetMetadata", req, &Empty{})
}

func (c *Client) Metadata(ctx context.Context, path, stream string) (string, error) {
	var resp MetadataResponse
	req := MetadataRequest{SessionID: c.sessionID, Path: path, Stream: stream}
	if err := c.call(ctx, "Metadata", req, &resp); err != nil {
		return "", err
	}
	return resp.Data, nil
}

func (c *Client) Destroy(ctx context.Context, path string) error {
	return c.call(ctx, "Destroy", PathRequest{SessionID: c.sessionID, Path: path}, &Empty{})
}

// Stats returns node store counters from the gateway.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.call(ctx, "Stats", SessionRequest{SessionID: c.sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// call issues method and waits for the reply, the context, or the per-call
// timeout. Errors reported by the gateway are returned unchanged so callers
// see the remote message.
func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	if c.client == nil {
		return rpc.ErrShutdown
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	pending := c.client.Go(ServiceName+"."+method, req, resp, make(chan *rpc.Call, 1))
	select {
	case done := <-pending.Done:
		var remote rpc.ServerError
		if errors.As(done.Error, &remote) {
			return errors.New(string(remote))
		}
		if done.Error != nil {
			return fmt.Errorf("%s: %w", method, done.Error)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

// NewBinding returns a client binding that dials the gateway serving each
// hostname and announces the configured client version.
func NewBinding(cfg *config.Config, logger *slog.Logger) *wiretap.PathBinding {
	logger = logging.NewComponentLogger(logger, "ipc")
	return wiretap.NewPathBinding(func(ctx context.Context, hostname string) (wiretap.PathBackend, error) {
		if cfg == nil {
			return nil, errors.New("ipc binding requires config")
		}
		address := cfg.ServerAddress(hostname)
		logger.Info("using wiretap client version",
			logging.String("version", cfg.Client.Version),
			logging.String(logging.FieldHost, hostname),
			logging.String("address", address))

		client, err := Dial(ctx, address, cfg.Timeout())
		if err != nil {
			return nil, fmt.Errorf("dial gateway %s: %w", address, err)
		}
		if _, err := client.Hello(ctx, cfg.Client.Version, hostname); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("open session on %s: %w", address, err)
		}
		logger.Debug("gateway session opened",
			logging.String(logging.FieldSessionID, client.SessionID()),
			logging.String(logging.FieldHost, hostname))
		return client, nil
	})
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// remoteClient talks to a remote MCP server over streamable HTTP.
type remoteClient struct {
	url     string
	headers map[string]string

	mu      sync.RWMutex
	session *mcp.ClientSession
}

func newRemoteClient(url string, headers map[string]string) *remoteClient {
	return &remoteClient{
		url:     url,
		headers: headers,
	}
}

func (c *remoteClient) Initialize(ctx context.Context, request *mcp.InitializeRequest) (*mcp.InitializeResult, error) {
	transport := &mcp.StreamableClientTransport{
		Endpoint:   c.url,
		HTTPClient: c.httpClient(),
	}

	client := mcp.NewClient(request.Params.ClientInfo, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	return session.InitializeResult(), nil
}

func (c *remoteClient) ListTools(ctx context.Context, params *mcp.ListToolsParams) iter.Seq2[*mcp.Tool, error] {
	session, err := c.getSession()
	if err != nil {
		return errSeq(err)
	}
	return session.Tools(ctx, params)
}

func (c *remoteClient) CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	session, err := c.getSession()
	if err != nil {
		return nil, err
	}
	return session.CallTool(ctx, params)
}

func (c *remoteClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

func (c *remoteClient) getSession() (*mcp.ClientSession, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return nil, errors.New("MCP client not initialized")
	}
	return c.session, nil
}

func (c *remoteClient) httpClient() *http.Client {
	if len(c.headers) == 0 {
		return http.DefaultClient
	}
	return &http.Client{
		Transport: &headerTransport{headers: c.headers, base: http.DefaultTransport},
	}
}

type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

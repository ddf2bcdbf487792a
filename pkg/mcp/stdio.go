package mcp

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"os/exec"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// commandClient runs an MCP server as a child process and talks to it over
// stdio.
type commandClient struct {
	command string
	args    []string
	env     []string

	mu      sync.RWMutex
	session *mcp.ClientSession
}

func newCommandClient(command string, args, env []string) *commandClient {
	return &commandClient{
		command: command,
		args:    args,
		env:     env,
	}
}

func (c *commandClient) Initialize(ctx context.Context, request *mcp.InitializeRequest) (*mcp.InitializeResult, error) {
	cmd := exec.Command(c.command, c.args...)
	cmd.Env = append(os.Environ(), c.env...)

	client := mcp.NewClient(request.Params.ClientInfo, nil)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server %s: %w", c.command, err)
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	return session.InitializeResult(), nil
}

func (c *commandClient) ListTools(ctx context.Context, params *mcp.ListToolsParams) iter.Seq2[*mcp.Tool, error] {
	session, err := c.getSession()
	if err != nil {
		return errSeq(err)
	}
	return session.Tools(ctx, params)
}

func (c *commandClient) CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	session, err := c.getSession()
	if err != nil {
		return nil, err
	}
	return session.CallTool(ctx, params)
}

func (c *commandClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

func (c *commandClient) getSession() (*mcp.ClientSession, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return nil, errors.New("MCP client not initialized")
	}
	return c.session, nil
}

func errSeq(err error) iter.Seq2[*mcp.Tool, error] {
	return func(yield func(*mcp.Tool, error) bool) {
		yield(nil, err)
	}
}

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// JSON-RPC 2.0 framing for the MCP stdio transport.
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type callToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type toolResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Client performs one-shot tool calls against configured MCP servers.
// Each call spawns the server process, writes a single tools/call request
// and reads the matching response, mirroring the stdio transport's
// single-exchange mode.
type Client struct {
	config *Config
	logger zerolog.Logger
	nextID atomic.Int64
}

// NewClient creates a new MCP client
func NewClient(cfg *Config, logger zerolog.Logger) *Client {
	return &Client{
		config: cfg,
		logger: logger,
	}
}

// CallTool invokes a tool on a named MCP server and returns the text of
// the first content item in the result.
func (c *Client) CallTool(ctx context.Context, server, tool string, args map[string]interface{}) (string, error) {
	sc, ok := c.config.Server(server)
	if !ok {
		return "", fmt.Errorf("MCP server %q not configured", server)
	}

	id := c.nextID.Add(1)
	request := rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "tools/call",
		Params: callToolParams{
			Name:      tool,
			Arguments: args,
		},
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal MCP request: %w", err)
	}

	cmd := exec.CommandContext(ctx, sc.Command, sc.Args...)
	cmd.Env = os.Environ()
	for k, v := range sc.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start MCP server %q: %w", server, err)
	}

	go c.drainStderr(server, stderr)

	if _, err := stdin.Write(append(payload, '\n')); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return "", fmt.Errorf("failed to write MCP request: %w", err)
	}
	stdin.Close()

	response, err := c.readResponse(stdout, id)

	// The server may keep listening after answering; we are done with it.
	cmd.Process.Kill()
	cmd.Wait()

	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("MCP call to %q timed out: %w", server, ctx.Err())
		}
		return "", err
	}

	if response.Error != nil {
		return "", fmt.Errorf("MCP error %d: %s", response.Error.Code, response.Error.Message)
	}

	var result toolResult
	if err := json.Unmarshal(response.Result, &result); err != nil {
		return "", fmt.Errorf("failed to parse MCP tool result: %w", err)
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("empty response from MCP server %q", server)
	}

	text := result.Content[0].Text
	if result.IsError {
		return "", fmt.Errorf("MCP tool error: %s", text)
	}

	return text, nil
}

// readResponse scans stdout lines until the response with the matching id
// arrives. Notifications and responses to other ids are skipped.
func (c *Client) readResponse(r io.Reader, id int64) (*rpcResponse, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp rpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			c.logger.Debug().Str("line", string(line)).Msg("Skipping non-JSON MCP output")
			continue
		}

		var respID int64
		if err := json.Unmarshal(resp.ID, &respID); err != nil || respID != id {
			continue
		}

		return &resp, nil
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read MCP response: %w", err)
	}
	return nil, fmt.Errorf("MCP server closed stdout without responding")
}

func (c *Client) drainStderr(server string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		c.logger.Debug().Str("server", server).Str("stderr", scanner.Text()).Msg("MCP server output")
	}
}

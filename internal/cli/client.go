// Package cli 中继的命令行客户端：命令注册表和各命令实现
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"wing-analyzer/internal/model"
	"wing-analyzer/internal/server/handlers"
)

// DefaultServerURL 默认中继地址
const DefaultServerURL = "http://127.0.0.1:8080"

const (
	internalPath = "/api/v1/internal/messages"
	externalPath = "/api/v1/external/messages"
	statusPath   = "/api/v1/status"
)

// Client 中继 HTTP 客户端
type Client struct {
	serverURL  string
	token      string
	httpClient *http.Client
	out        io.Writer
}

// NewClient 创建客户端，token 为空时依赖本机访问放行内部接口
func NewClient(serverURL, token string) *Client {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	return &Client{
		serverURL: serverURL,
		token:     token,
		// 分析请求可能等待用户登录，不设超时
		httpClient: &http.Client{},
		out:        os.Stdout,
	}
}

// SetOutput 设置输出位置
func (c *Client) SetOutput(w io.Writer) {
	c.out = w
}

// Output 输出位置
func (c *Client) Output() io.Writer {
	return c.out
}

// ServerURL 返回服务器 URL
func (c *Client) ServerURL() string {
	return c.serverURL
}

// SendInternal 发送内部入口消息并打印响应
func (c *Client) SendInternal(ctx context.Context, msg model.Message) error {
	return c.do(ctx, http.MethodPost, internalPath, msg)
}

// SendExternal 发送外部入口消息并打印响应
func (c *Client) SendExternal(ctx context.Context, msg model.Message) error {
	return c.do(ctx, http.MethodPost, externalPath, msg)
}

// Status 查询状态并打印响应
func (c *Client) Status(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, statusPath, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" && endpoint == internalPath {
		req.Header.Set(handlers.TokenHeader, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.printJSON(bodyBytes)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP error: status code %d", resp.StatusCode)
	}
	return nil
}

// printJSON 格式化输出，失败时原样输出
func (c *Client) printJSON(data []byte) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Fprintln(c.out, string(data))
		return
	}
	fmt.Fprintln(c.out, pretty.String())
}

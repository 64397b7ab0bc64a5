package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgErrors "svn-migrate/pkg/errors"
	"svn-migrate/pkg/retry"
)

// ClientConfig 客户端配置
type ClientConfig struct {
	BaseURL          string // 平台基础URL, 如: https://gitlab.example.com
	Token            string // 访问Token
	DefaultNamespace int64  // 新建项目的命名空间ID, 0表示当前用户
	Timeout          time.Duration
}

// Project 目标平台项目
type Project struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	HTTPURLToRepo     string `json:"http_url_to_repo"`
	DefaultBranch     string `json:"default_branch"`
	WebURL            string `json:"web_url"`
}

// Client 目标托管平台客户端
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient 创建客户端
func NewClient(config *ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL不能为空")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// TestConnection 测试连接与令牌
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.do(ctx, "GET", "/api/v4/user", nil)
	return err
}

// GetProject 按路径或ID查询项目
func (c *Client) GetProject(ctx context.Context, idOrPath string) (*Project, error) {
	body, err := c.do(ctx, "GET", "/api/v4/projects/"+url.PathEscape(idOrPath), nil)
	if err != nil {
		return nil, err
	}

	var project Project
	if err := json.Unmarshal(body, &project); err != nil {
		return nil, fmt.Errorf("解析项目信息失败: %w", err)
	}
	return &project, nil
}

// CreateProject 创建目标项目
func (c *Client) CreateProject(ctx context.Context, name, path string) (*Project, error) {
	payload := map[string]interface{}{
		"name": name,
		"path": path,
	}
	if c.config.DefaultNamespace > 0 {
		payload["namespace_id"] = c.config.DefaultNamespace
	}

	body, err := c.do(ctx, "POST", "/api/v4/projects", payload)
	if err != nil {
		return nil, err
	}

	var project Project
	if err := json.Unmarshal(body, &project); err != nil {
		return nil, fmt.Errorf("解析项目信息失败: %w", err)
	}
	return &project, nil
}

// DeleteProject 删除目标项目
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	_, err := c.do(ctx, "DELETE", fmt.Sprintf("/api/v4/projects/%d", id), nil)
	return err
}

// PushURL 返回带令牌的推送地址, 仅在内存中传递给重放进程
func (c *Client) PushURL(project *Project) string {
	repoURL := project.HTTPURLToRepo
	if repoURL == "" {
		return ""
	}
	u, err := url.Parse(repoURL)
	if err != nil {
		return repoURL
	}
	u.User = url.UserPassword("oauth2", c.config.Token)
	return u.String()
}

// do 执行单次API调用, 429/5xx按有界退避策略重试
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	fullURL := strings.TrimSuffix(c.config.BaseURL, "/") + path

	var respBody []byte
	err := retry.Do(ctx, retry.DefaultPolicy, func() (bool, error) {
		var reqBody io.Reader
		if payload != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				return false, err
			}
			reqBody = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
		if err != nil {
			return false, err
		}
		req.Header.Set("PRIVATE-TOKEN", c.config.Token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// 网络错误视为暂时性, 可重试
			return true, pkgErrors.NewUnreachableError("目标平台不可达", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			respBody = body
			return false, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return false, pkgErrors.NewAuthenticationError("目标平台认证失败",
				fmt.Errorf("状态码: %d", resp.StatusCode))
		case resp.StatusCode == http.StatusNotFound:
			return false, pkgErrors.NewNotFoundError("目标平台资源不存在")
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return true, pkgErrors.Wrap(pkgErrors.CodeInternalError,
				fmt.Sprintf("目标平台返回 %d", resp.StatusCode),
				fmt.Errorf("%s", strings.TrimSpace(string(body))))
		default:
			return false, pkgErrors.Wrap(pkgErrors.CodeInternalError,
				fmt.Sprintf("请求失败 (状态码: %d)", resp.StatusCode),
				fmt.Errorf("%s", strings.TrimSpace(string(body))))
		}
	})

	if err != nil {
		return nil, err
	}
	return respBody, nil
}

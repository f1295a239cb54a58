package xnet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultProbeTimeout = 5 * time.Second

// ErrProbeFailed 探测请求返回了非成功状态码
var ErrProbeFailed = errors.New("xnet: probe failed")

// Prober 连通性探测器接口。
// Probe 返回 nil 表示在线。
type Prober interface {
	Probe(ctx context.Context) error
}

// ProbeOption 配置 HTTP 探测器的函数式选项
type ProbeOption func(*HTTPProbe)

// WithTimeout 设置单次探测的超时时间，默认 5s
func WithTimeout(d time.Duration) ProbeOption {
	return func(p *HTTPProbe) {
		if d > 0 {
			p.client.Timeout = d
		}
	}
}

// WithClient 设置自定义 HTTP 客户端
func WithClient(c *http.Client) ProbeOption {
	return func(p *HTTPProbe) {
		if c != nil {
			p.client = c
		}
	}
}

// HTTPProbe 基于 HTTP HEAD 请求的连通性探测器。
type HTTPProbe struct {
	url    string
	client *http.Client
}

// NewHTTPProbe 创建 HTTP 探测器。
func NewHTTPProbe(url string, opts ...ProbeOption) *HTTPProbe {
	p := &HTTPProbe{
		url:    url,
		client: &http.Client{Timeout: defaultProbeTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe 发起一次探测请求，超时或非 2xx/3xx 状态码视为离线。
func (p *HTTPProbe) Probe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return fmt.Errorf("xnet: build probe request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: status %d", ErrProbeFailed, resp.StatusCode)
	}
	return nil
}

var _ Prober = (*HTTPProbe)(nil)

// ProberFunc 将函数适配为 Prober 接口。
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error {
	return f(ctx)
}

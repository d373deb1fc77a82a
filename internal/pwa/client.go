package pwa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SubscribePath 是推送订阅资源的固定路径。
const SubscribePath = "/resources/subscribe"

const maxKeyResponseBytes = 4 << 10

// KeyEndpoint 抽象 /resources/subscribe 的两个操作。
type KeyEndpoint interface {
	FetchKey(ctx context.Context) (string, error)
	PostSubscription(ctx context.Context, subscription *Subscription) error
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ResourceClient 通过 HTTP 访问 /resources/subscribe。
type ResourceClient struct {
	baseURL    string
	httpClient httpDoer
}

// NewResourceClient 构造 ResourceClient，doer 为空时使用 10 秒超时的默认客户端。
func NewResourceClient(baseURL string, doer httpDoer) *ResourceClient {
	if doer == nil {
		doer = &http.Client{Timeout: 10 * time.Second}
	}
	return &ResourceClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: doer,
	}
}

// FetchKey 以纯文本形式读取服务端的 VAPID 公钥。
func (c *ResourceClient) FetchKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+SubscribePath, nil)
	if err != nil {
		return "", fmt.Errorf("build key request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch key: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeyResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read key: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch key: unexpected status %d", resp.StatusCode)
	}
	return strings.TrimSpace(string(body)), nil
}

// PostSubscription 上报订阅，body 为 {subscription, type: "POST_SUBSCRIPTION"}。
func (c *ResourceClient) PostSubscription(ctx context.Context, subscription *Subscription) error {
	payload, err := json.Marshal(SubscriptionEnvelope{Subscription: subscription, Type: PostSubscriptionType})
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+SubscribePath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build subscription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post subscription: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post subscription: unexpected status %d", resp.StatusCode)
	}
	return nil
}

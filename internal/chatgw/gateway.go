// Package chatgw delivers bridge output to the group-chat platform over its
// HTTP API. It is the outbound half of the chat integration; inbound operator
// commands arrive through whatever host framework embeds the bridge.
package chatgw

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/mc-bridge-go/internal/obslog"
)

type Gateway struct {
	baseURL string
	token   string
	http    *fasthttp.Client

	timeout  time.Duration
	retryMax int
	logger   *zap.Logger
}

type Option func(*Gateway)

func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

func WithRetry(max int) Option {
	return func(g *Gateway) { g.retryMax = max }
}

func New(baseURL, token string, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		timeout:  10 * time.Second,
		retryMax: 3,
		logger:   obslog.L().Named("chatgw"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type groupMessage struct {
	GroupID string `json:"group_id"`
	Message string `json:"message"`
}

type privateMessage struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// SendToGroups posts text to every group, one API call each. Delivery is best
// effort; failures are logged and do not stop the remaining groups.
func (g *Gateway) SendToGroups(groupIDs []string, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout*time.Duration(g.retryMax))
	defer cancel()
	for _, id := range groupIDs {
		if err := g.post(ctx, "/send_group_msg", groupMessage{GroupID: id, Message: text}); err != nil {
			g.logger.Warn("group delivery failed", zap.String("group", id), zap.Error(err))
		}
	}
}

// SendPrivate posts text to one chat user.
func (g *Gateway) SendPrivate(ctx context.Context, userID, text string) error {
	return g.post(ctx, "/send_private_msg", privateMessage{UserID: userID, Message: text})
}

func (g *Gateway) post(ctx context.Context, path string, in any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(g.baseURL + path)
	req.Header.SetContentType("application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	req.SetBody(payload)

	attempts := g.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := g.http.DoDeadline(req, resp, g.deadline(ctx))
		if err == nil {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				return nil
			}
			lastErr = fmt.Errorf("chat api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if !retryableStatus(status) {
				return lastErr
			}
		} else {
			lastErr = fmt.Errorf("request failed: %w", err)
		}
		if attempt < attempts {
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
		}
	}
	return lastErr
}

func (g *Gateway) deadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(g.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func retryableStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

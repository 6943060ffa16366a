package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/config"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/constants"
)

// WebhookNotifier posts notifications to a Discord-compatible webhook.
// With no URL configured it degrades to a logged no-op, so transitions
// never depend on the audit channel being reachable.
type WebhookNotifier struct {
	url    string
	client *fasthttp.Client
	logger zerolog.Logger
}

func NewWebhookNotifier(cfg *config.Config, logger zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url: cfg.AuditWebhookURL,
		client: &fasthttp.Client{
			ReadTimeout:         constants.NotifyTimeout,
			WriteTimeout:        constants.NotifyTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

type webhookPayload struct {
	Embeds []Notification `json:"embeds"`
}

func (n *WebhookNotifier) Post(ctx context.Context, note Notification) error {
	if n.url == "" {
		n.logger.Debug().Str("title", note.Title).Msg("no audit webhook configured, dropping notification")
		return nil
	}

	body, err := json.Marshal(webhookPayload{Embeds: []Notification{note}})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(n.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline := time.Now().Add(constants.NotifyTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := n.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	n.logger.Debug().Str("title", note.Title).Msg("notification posted")
	return nil
}

package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/roadbuddy/internal/models"
	"github.com/example/roadbuddy/internal/observability"
)

// PushDispatcher prefers live WebSocket sessions and falls back to posting
// the notification to a webhook.
type PushDispatcher struct {
	Endpoint string
	Client   *http.Client
	WS       *WSRegistry
	Logger   *slog.Logger
}

func NewPushDispatcher(endpoint string, ws *WSRegistry, logger *slog.Logger) *PushDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushDispatcher{Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}, WS: ws, Logger: logger}
}

func (p *PushDispatcher) Notify(ctx context.Context, userID string, n models.Notification) error {
	if p.WS != nil {
		err := p.WS.Notify(ctx, userID, n)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNoSession) {
			return err
		}
	}
	if p.Endpoint == "" {
		p.Logger.Debug("notification dropped", "user_id", userID, "type", n.Type)
		return ErrNoSession
	}
	b, err := json.Marshal(map[string]any{"user_id": userID, "notification": n})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("push webhook: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push webhook: status %d", resp.StatusCode)
	}
	observability.NotificationsSent.WithLabelValues("push").Inc()
	return nil
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/shopapi/internal/models"
)

const (
	defaultHTTPStatusThreshold = 300
	defaultWebhookTimeout      = 10 * time.Second
)

// WebhookService posts confirmation messages to an external mailer.
type WebhookService struct {
	client     *http.Client
	log        *zap.SugaredLogger
	webhookURL string
	wg         sync.WaitGroup
}

func NewWebhookService(log *zap.SugaredLogger, webhookURL string) *WebhookService {
	return &WebhookService{
		client:     &http.Client{Timeout: defaultWebhookTimeout},
		log:        log,
		webhookURL: webhookURL,
	}
}

func (s *WebhookService) NotifyConfirmation(ctx context.Context, msg models.ConfirmationMessage) {
	if s.webhookURL == "" {
		s.log.Debugw("Confirmation webhook disabled", "userID", msg.UserID)
		return
	}

	// The request may finish before delivery does.
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		payload, err := json.Marshal(msg)
		if err != nil {
			s.log.Errorw("failed to marshal webhook payload", "error", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
		if err != nil {
			s.log.Errorw("failed to create webhook request", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			s.log.Errorw("failed to send webhook", "userID", msg.UserID, "error", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= defaultHTTPStatusThreshold {
			s.log.Warnw("webhook returned non-2xx status", "status", resp.StatusCode, "userID", msg.UserID)
		}
	}()
}

// Wait blocks until in-flight deliveries are done.
func (s *WebhookService) Wait() {
	s.wg.Wait()
}

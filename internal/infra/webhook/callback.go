package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
	"github.com/stepwise/stepwise-processing-service/internal/infra/metrics"
	"go.uber.org/zap"
)

// Sender POSTs guide results to caller supplied callback URLs. Delivery is
// attempted once.
type Sender struct {
	client *http.Client
	logger *zap.Logger
}

func NewSender(timeout time.Duration, logger *zap.Logger) *Sender {
	return &Sender{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (s *Sender) SendCallback(ctx context.Context, callbackURL string, payload entity.CallbackPayload) error {
	log := s.logger.With(zap.Int("guide_id", payload.GuideID), zap.String("callback_url", callbackURL))

	body, err := json.Marshal(payload)
	if err != nil {
		metrics.CallbacksTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal callback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		metrics.CallbacksTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.CallbacksTotal.WithLabelValues("error").Inc()
		log.Warn("callback delivery failed", zap.Error(err))
		return fmt.Errorf("send callback: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		metrics.CallbacksTotal.WithLabelValues("rejected").Inc()
		log.Warn("callback rejected", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}

	metrics.CallbacksTotal.WithLabelValues("delivered").Inc()
	log.Info("callback delivered")
	return nil
}

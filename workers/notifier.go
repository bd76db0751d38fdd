package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"shopradar/models"
)

// AlertQueue is the slice of the store the notifier needs.
type AlertQueue interface {
	PendingAlerts(limit int) ([]models.Alert, error)
	MarkAlertNotified(id int64) error
	BumpAlertAttempt(id int64) error
}

// AlertNotifier delivers queued price alerts to a webhook endpoint.
// Failed deliveries are retried on later passes until the queue gives
// up on them.
type AlertNotifier struct {
	queue      AlertQueue
	httpClient *http.Client
	webhookURL string
}

// NewAlertNotifier creates a new alert notifier
func NewAlertNotifier(queue AlertQueue, webhookURL string) *AlertNotifier {
	return &AlertNotifier{
		queue:      queue,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		webhookURL: webhookURL,
	}
}

type webhookPayload struct {
	Text  string        `json:"text"`
	Alert *models.Alert `json:"alert"`
}

// Run starts the notifier loop
func (w *AlertNotifier) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Alert notifier stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		}
	}
}

func (w *AlertNotifier) processBatch(ctx context.Context, batchSize int) {
	alerts, err := w.queue.PendingAlerts(batchSize)
	if err != nil {
		log.Printf("Alert notifier: query error: %v", err)
		return
	}

	if len(alerts) == 0 {
		return
	}

	log.Printf("Alert notifier: delivering %d alerts", len(alerts))

	var delivered, failed int
	for i := range alerts {
		a := &alerts[i]

		if err := w.deliver(ctx, a); err != nil {
			log.Printf("Alert notifier: failed %s (%s): %v", a.Title, a.ProductID, err)
			failed++
			if err := w.queue.BumpAlertAttempt(a.ID); err != nil {
				log.Printf("Alert notifier: failed to record attempt for %d: %v", a.ID, err)
			}
			continue
		}

		if err := w.queue.MarkAlertNotified(a.ID); err != nil {
			log.Printf("Alert notifier: failed to mark %d notified: %v", a.ID, err)
			failed++
			continue
		}

		delivered++

		// Rate limit between webhook calls
		time.Sleep(200 * time.Millisecond)
	}

	if delivered > 0 || failed > 0 {
		log.Printf("Alert notifier: delivered %d, failed %d", delivered, failed)
	}
}

func (w *AlertNotifier) deliver(ctx context.Context, alert *models.Alert) error {
	direction := "dropped below"
	if alert.Type == models.AlertAbove {
		direction = "rose above"
	}
	payload := webhookPayload{
		Text: fmt.Sprintf("%s on %s %s %s (now %s)",
			alert.Title, alert.Platform, direction, alert.TargetPrice, alert.Price),
		Alert: alert,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status: %d", resp.StatusCode)
	}
	return nil
}

package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hamza/scanhub/internal/models"
)

// WebhookNotifier posts terminal session records to a configured URL.
// Failures are logged and dropped; notification is never retried.
type WebhookNotifier struct {
	url    string
	client *http.Client
	log    *logrus.Entry
}

// NewWebhookNotifier builds a notifier for url.
func NewWebhookNotifier(url string, log *logrus.Entry) *WebhookNotifier {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// SessionFinished delivers the terminal session as a JSON POST.
func (n *WebhookNotifier) SessionFinished(session *models.SmartScanSession) {
	body, err := json.Marshal(session)
	if err != nil {
		n.log.WithError(err).Warn("could not encode webhook payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.log.WithError(err).Warn("could not build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.WithError(err).WithField("url", n.url).Warn("webhook delivery failed")
		return
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.log.WithFields(logrus.Fields{
			"url":    n.url,
			"status": resp.StatusCode,
		}).Warn("webhook returned non-success status")
	}
}

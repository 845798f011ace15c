/*
Copyright 2025 Speedy Credit Repair Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/speedycredit/enrolld/config"
	"github.com/speedycredit/enrolld/internal/signature"
	"github.com/speedycredit/enrolld/model"
)

const (
	webhookSignatureHeader = "X-Idiq-Signature"
	webhookTimestampHeader = "X-Idiq-Timestamp"
)

// PartnerWebhook ingests partner events. The raw body is verified against
// the webhook secret before anything is parsed; verification failures are
// rejected with no side effects. Handled and ignored events both return 200
// so the partner stops redelivering.
func (a Api) PartnerWebhook(c *gin.Context) {
	conf, err := config.Fetch()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server configuration unavailable"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	timestamp := c.GetHeader(webhookTimestampHeader)
	sig := c.GetHeader(webhookSignatureHeader)
	if err := signature.Verify(body, timestamp, sig, conf.Partner.WebhookSecret, signature.DefaultMaxSkew); err != nil {
		logrus.Warnf("rejected webhook: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
		return
	}

	// A verified payload we cannot act on is acknowledged so the partner
	// stops redelivering it; there is nothing a redelivery would fix.
	var event model.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logrus.Warnf("acknowledging malformed webhook payload: %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if event.MemberID == "" {
		logrus.Warnf("acknowledging webhook event %q without a member ID", event.EventType)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := a.service.ProcessWebhookEvent(c.Request.Context(), event); err != nil {
		logrus.Errorf("webhook processing failed for member %s: %v", event.MemberID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

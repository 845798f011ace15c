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

package model

import "time"

// EnrollmentRequest statuses. A request is terminal once it reaches
// completed, failed, duplicate or rejected; terminal rows are never updated
// again and never deleted.
const (
	StatusQueued         = "queued"
	StatusProcessing     = "processing"
	StatusRetryScheduled = "retry_scheduled"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
	StatusDuplicate      = "duplicate"
	StatusRejected       = "rejected"
)

// Enrollment statuses.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// MaxRetryCount bounds transient-failure retries. The delay before attempt
// N+1 is RetryBaseDelay * 3^N, so 5, 15 and 45 minutes.
const (
	MaxRetryCount  = 3
	RetryBaseDelay = 5 * time.Minute
)

// IsTerminalStatus reports whether a request status permits no further
// transitions.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusDuplicate, StatusRejected:
		return true
	}
	return false
}

// RetryDelay returns how long to defer the next attempt after retryCount
// failed attempts.
func RetryDelay(retryCount int) time.Duration {
	delay := RetryBaseDelay
	for i := 0; i < retryCount; i++ {
		delay *= 3
	}
	return delay
}

// EnrollmentRequest is the durable intake record for one enrollment attempt.
// ContactData holds the PII snapshot the partner payload is built from.
type EnrollmentRequest struct {
	RequestID        string                 `json:"request_id"`
	ContactID        string                 `json:"contact_id"`
	ContactData      ContactData            `json:"contact_data"`
	SubscriptionType string                 `json:"subscription_type"`
	LeadScore        int                    `json:"lead_score"`
	LeadSource       string                 `json:"lead_source,omitempty"`
	Status           string                 `json:"status"`
	RetryCount       int                    `json:"retry_count"`
	Error            string                 `json:"error,omitempty"`
	MetaData         map[string]interface{} `json:"meta_data,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	ProcessedAt      *time.Time             `json:"processed_at,omitempty"`
}

// Enrollment is the durable record of a successful partner enrollment. At
// most one active enrollment exists per contact; the database enforces this
// with a partial unique index, not application reads.
type Enrollment struct {
	EnrollmentID     string                 `json:"enrollment_id"`
	ContactID        string                 `json:"contact_id"`
	MemberID         string                 `json:"member_id"`
	Username         string                 `json:"username"`
	CredentialsHash  string                 `json:"-"`
	SubscriptionType string                 `json:"subscription_type"`
	ProductCode      string                 `json:"product_code"`
	Status           string                 `json:"status"`
	ReportCount      int64                  `json:"report_count"`
	LastReportID     string                 `json:"last_report_id,omitempty"`
	LastReportURL    string                 `json:"last_report_url,omitempty"`
	LastReportPull   *time.Time             `json:"last_report_pull,omitempty"`
	NextBillingDate  *time.Time             `json:"next_billing_date,omitempty"`
	MonitoringActive bool                   `json:"monitoring_active"`
	MetaData         map[string]interface{} `json:"meta_data,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	ExpiredAt        *time.Time             `json:"expired_at,omitempty"`
}

// ReportArtifact records one stored credit report. Immutable once written;
// (contact_id, report_id) is unique so redelivered webhooks cannot create a
// second artifact or double-count.
type ReportArtifact struct {
	ArtifactID string    `json:"artifact_id"`
	ContactID  string    `json:"contact_id"`
	ReportID   string    `json:"report_id"`
	MemberID   string    `json:"member_id"`
	StorageKey string    `json:"storage_key"`
	SignedURL  string    `json:"signed_url"`
	ExpiresAt  time.Time `json:"expires_at"`
	FetchedAt  time.Time `json:"fetched_at"`
}

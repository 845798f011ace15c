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

// Partner webhook event types. Unknown types are acknowledged and ignored so
// the partner can add events without breaking us.
const (
	EventReportReady         = "report.ready"
	EventReportUpdated       = "report.updated"
	EventSubscriptionExpired = "subscription.expired"
	EventAlertTriggered      = "alert.triggered"
)

// WebhookEvent is the partner's webhook envelope after signature
// verification.
type WebhookEvent struct {
	EventType    string                 `json:"eventType"`
	MemberID     string                 `json:"memberId"`
	ReportID     string                 `json:"reportId,omitempty"`
	AlertTitle   string                 `json:"alertTitle,omitempty"`
	AlertMessage string                 `json:"alertMessage,omitempty"`
	Timestamp    string                 `json:"timestamp,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
}

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

// Workflow stages a contact moves through as the enrollment pipeline runs.
// The state machine is the only writer of these on terminal transitions.
const (
	WorkflowStageEnrolled         = "idiq_enrolled"
	WorkflowStageEnrollmentFailed = "idiq_enrollment_failed"
	WorkflowStageReportReceived   = "credit_report_received"
	WorkflowStageExpired          = "idiq_subscription_expired"
)

// Address is a US mailing address as collected on intake forms.
type Address struct {
	Street  string `json:"street"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

// ContactData carries the PII needed to enroll a consumer with the partner.
// It travels inside an EnrollmentRequest and is never stored outside the
// request record's JSONB column.
type ContactData struct {
	FirstName   string  `json:"first_name"`
	MiddleName  string  `json:"middle_name,omitempty"`
	LastName    string  `json:"last_name"`
	Suffix      string  `json:"suffix,omitempty"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone,omitempty"`
	DateOfBirth string  `json:"date_of_birth"`
	SSN         string  `json:"ssn,omitempty"`
	SSNLast4    string  `json:"ssn_last4,omitempty"`
	Address     Address `json:"address"`
}

// Workflow is the operator-facing pointer that records where a contact sits
// in the pipeline and why it stopped there, so failures are visible without
// reading logs.
type Workflow struct {
	Stage      string    `json:"stage"`
	NextAction string    `json:"next_action,omitempty"`
	Error      string    `json:"error,omitempty"`
	LastAction time.Time `json:"last_action"`
}

// Contact is the CRM contact record as far as the orchestrator is concerned.
type Contact struct {
	ContactID    string                 `json:"contact_id"`
	FirstName    string                 `json:"first_name"`
	LastName     string                 `json:"last_name"`
	Email        string                 `json:"email"`
	MemberID     string                 `json:"member_id,omitempty"`
	EnrollmentID string                 `json:"enrollment_id,omitempty"`
	IdiqStatus   string                 `json:"idiq_status,omitempty"`
	Workflow     Workflow               `json:"workflow"`
	CreatedAt    time.Time              `json:"created_at"`
	MetaData     map[string]interface{} `json:"meta_data,omitempty"`
}

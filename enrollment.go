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

package enrolld

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/speedycredit/enrolld/config"
	"github.com/speedycredit/enrolld/internal/apierror"
	"github.com/speedycredit/enrolld/internal/notification"
	"github.com/speedycredit/enrolld/internal/signature"
	"github.com/speedycredit/enrolld/model"
)

// Sweep settings: queued requests older than this with a decent lead score
// get re-enqueued by the recovery job, and processing rows claimed longer ago
// than the stuck threshold are treated as abandoned by a dead worker.
const (
	sweepMinLeadScore   = 5
	sweepMinAge         = time.Hour
	sweepBatchSize      = 100
	sweepStuckThreshold = 15 * time.Minute
)

// RecordEnrollmentRequest persists a new request and puts it on the
// processing queue. The row is written first: if the enqueue fails the
// request stays queued and the recovery sweep picks it up.
func (e *Enrolld) RecordEnrollmentRequest(ctx context.Context, req model.EnrollmentRequest) (model.EnrollmentRequest, error) {
	ctx, span := tracer.Start(ctx, "Recording Enrollment Request")
	defer span.End()

	if err := ValidateSubscriptionType(req.SubscriptionType); err != nil {
		return model.EnrollmentRequest{}, apierror.NewAPIError(apierror.ErrInvalidInput, "Invalid subscription type", err)
	}

	created, err := e.datasource.CreateEnrollmentRequest(ctx, req)
	if err != nil {
		return model.EnrollmentRequest{}, err
	}

	if err := e.queue.Enqueue(ctx, &created); err != nil {
		logrus.Errorf("failed to enqueue enrollment request %s, sweep will recover it: %v", created.RequestID, err)
	}

	return created, nil
}

// GetEnrollmentRequest fetches a request row for operator visibility.
func (e *Enrolld) GetEnrollmentRequest(ctx context.Context, requestID string) (*model.EnrollmentRequest, error) {
	return e.datasource.GetEnrollmentRequest(ctx, requestID)
}

// GetEnrollment fetches an enrollment by its ID.
func (e *Enrolld) GetEnrollment(ctx context.Context, enrollmentID string) (*model.Enrollment, error) {
	return e.datasource.GetEnrollmentByID(ctx, enrollmentID)
}

// GetActiveEnrollmentForContact fetches the contact's active enrollment.
func (e *Enrolld) GetActiveEnrollmentForContact(ctx context.Context, contactID string) (*model.Enrollment, error) {
	return e.datasource.GetActiveEnrollmentByContactID(ctx, contactID)
}

// CreateContact records a minimal contact for the pipeline to hang
// workflow state on.
func (e *Enrolld) CreateContact(ctx context.Context, contact model.Contact) (model.Contact, error) {
	return e.datasource.CreateContact(ctx, contact)
}

// GetContact fetches a contact with its workflow pointer.
func (e *Enrolld) GetContact(ctx context.Context, contactID string) (*model.Contact, error) {
	return e.datasource.GetContactByID(ctx, contactID)
}

// ProcessEnrollmentRequest drives one request through the pipeline. It is
// the body of the queue consumer and safe to invoke multiple times for the
// same request: the claim step rejects requests that are terminal or
// already being processed, so duplicate deliveries and stale retry wake-ups
// fall through without side effects.
func (e *Enrolld) ProcessEnrollmentRequest(ctx context.Context, requestID string) error {
	ctx, span := tracer.Start(ctx, "Processing Enrollment Request")
	defer span.End()

	req, err := e.datasource.ClaimEnrollmentRequest(ctx, requestID)
	if err != nil {
		if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrConflict {
			logrus.Infof("enrollment request %s not claimable, skipping", requestID)
			return nil
		}
		return err
	}

	if err := ValidateContactData(&req.ContactData); err != nil {
		return e.rejectRequest(ctx, req, fmt.Sprintf("validation failed: %v", err))
	}
	if err := ValidateSubscriptionType(req.SubscriptionType); err != nil {
		return e.rejectRequest(ctx, req, err.Error())
	}

	// Cheap pre-check; the unique index on enrollments is what actually
	// guarantees this under races.
	if existing, err := e.datasource.GetActiveEnrollmentByContactID(ctx, req.ContactID); err == nil && existing != nil {
		return e.markDuplicate(ctx, req, existing.MemberID)
	}

	plan, err := model.PlanFor(req.SubscriptionType)
	if err != nil {
		return e.rejectRequest(ctx, req, err.Error())
	}

	payload := buildPartnerPayload(req.ContactData, plan)
	result, err := e.partner.SubmitEnrollment(ctx, payload)
	if err != nil {
		return e.handleEnrollmentFailure(ctx, req, err)
	}

	return e.finalizeEnrollment(ctx, req, plan, result)
}

// buildPartnerPayload maps our contact record onto the partner's wire
// format and generates the portal credentials.
func buildPartnerPayload(data model.ContactData, plan model.SubscriptionPlan) model.PartnerEnrollmentPayload {
	ssn := data.SSN
	if ssn == "" {
		// Partner accepts a 9999-prefixed placeholder when only the last
		// four digits were collected, and verifies identity on its side.
		ssn = "9999" + data.SSNLast4
	}

	return model.PartnerEnrollmentPayload{
		FirstName:   data.FirstName,
		MiddleName:  data.MiddleName,
		LastName:    data.LastName,
		Suffix:      data.Suffix,
		Email:       data.Email,
		Phone:       data.Phone,
		DateOfBirth: data.DateOfBirth,
		SSN:         ssn,
		Address: model.PartnerAddress{
			Street:  data.Address.Street,
			Street2: data.Address.Street2,
			City:    data.Address.City,
			State:   strings.ToUpper(data.Address.State),
			Zip:     data.Address.Zip,
		},
		Credentials: model.PartnerCredentials{
			Username:   model.GenerateUsername(data.FirstName, data.LastName),
			Password:   model.GenerateTempPassword(),
			SecretWord: strings.ToLower(data.LastName),
		},
		Subscription: model.PartnerSubscription{
			ProductCode: plan.ProductCode,
			AutoRenew:   plan.Name != "trial",
		},
	}
}

// finalizeEnrollment runs the success path: durable enrollment row, contact
// pointer update, welcome credentials, scheduled report pull, terminal
// completed status.
func (e *Enrolld) finalizeEnrollment(ctx context.Context, req *model.EnrollmentRequest, plan model.SubscriptionPlan, result *model.EnrollmentResult) error {
	nextBilling := plan.NextBillingDate(time.Now())
	enrollment := model.Enrollment{
		ContactID:        req.ContactID,
		MemberID:         result.MemberID,
		Username:         result.Username,
		CredentialsHash:  signature.HashSecret(result.TemporaryPassword),
		SubscriptionType: plan.Name,
		ProductCode:      plan.ProductCode,
		NextBillingDate:  &nextBilling,
		MonitoringActive: true,
		MetaData: map[string]interface{}{
			"partner_enrollment_id": result.EnrollmentID,
			"lead_source":           req.LeadSource,
		},
	}

	created, err := e.datasource.CreateEnrollment(ctx, enrollment)
	if err != nil {
		if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrConflict {
			// A concurrent submission won the index race. The partner-side
			// enrollment is orphaned; flag it for manual cleanup.
			notification.NotifyError(fmt.Errorf("duplicate enrollment race for contact %s, orphaned partner member %s", req.ContactID, result.MemberID))
			return e.markDuplicate(ctx, req, result.MemberID)
		}
		return err
	}

	if err := e.datasource.UpdateContactEnrollment(ctx, req.ContactID, result.MemberID, created.EnrollmentID, model.StatusActive); err != nil {
		logrus.Errorf("failed to update contact %s enrollment pointers: %v", req.ContactID, err)
	}
	if err := e.datasource.UpdateContactWorkflow(ctx, req.ContactID, model.WorkflowStageEnrolled, "await_credit_report", ""); err != nil {
		logrus.Errorf("failed to update contact %s workflow: %v", req.ContactID, err)
	}

	e.queueWelcomeCredentials(ctx, req.ContactID, result)

	reportAt := time.Now().Add(24 * time.Hour)
	if result.ReportAvailableAt != nil {
		reportAt = *result.ReportAvailableAt
	}
	if err := e.queue.QueueReportPull(ctx, result.MemberID, req.ContactID, reportAt); err != nil {
		logrus.Errorf("failed to schedule report pull for member %s: %v", result.MemberID, err)
	}

	if err := e.datasource.MarkEnrollmentRequestTerminal(ctx, req.RequestID, model.StatusCompleted, ""); err != nil {
		return err
	}

	e.captureAnalytics(req.ContactID, "enrollment_completed", map[string]interface{}{
		"subscription_type": plan.Name,
		"lead_source":       req.LeadSource,
		"retry_count":       req.RetryCount,
	})
	return nil
}

func (e *Enrolld) queueWelcomeCredentials(ctx context.Context, contactID string, result *model.EnrollmentResult) {
	var portalURL string
	if cnf, err := config.Fetch(); err == nil {
		portalURL = cnf.Partner.PortalLoginURL
	}
	err := e.queue.QueueNotification(ctx, NotificationPayload{
		Type:      "welcome_credentials",
		ContactID: contactID,
		Data: map[string]interface{}{
			"member_id":          result.MemberID,
			"username":           result.Username,
			"temporary_password": result.TemporaryPassword,
			"portal_login_url":   portalURL,
		},
	})
	if err != nil {
		logrus.Errorf("failed to queue welcome credentials for contact %s: %v", contactID, err)
	}
}

// handleEnrollmentFailure classifies the failure. Rejections are terminal;
// transient faults are pushed back onto the queue with exponential backoff
// until the retry budget runs out.
func (e *Enrolld) handleEnrollmentFailure(ctx context.Context, req *model.EnrollmentRequest, submitErr error) error {
	if !IsRetryablePartnerError(submitErr) {
		return e.rejectRequest(ctx, req, submitErr.Error())
	}

	if req.RetryCount >= model.MaxRetryCount {
		return e.failRequest(ctx, req, submitErr.Error())
	}

	retryCount, err := e.datasource.ScheduleEnrollmentRequestRetry(ctx, req.RequestID, submitErr.Error())
	if err != nil {
		return err
	}
	if retryCount > model.MaxRetryCount {
		return e.failRequest(ctx, req, submitErr.Error())
	}

	if err := e.queue.EnqueueRetry(ctx, req.RequestID, retryCount); err != nil {
		// The row is parked in retry_scheduled; the task ID scheme makes a
		// later re-enqueue of the same attempt safe.
		logrus.Errorf("failed to enqueue retry %d for request %s: %v", retryCount, req.RequestID, err)
		return err
	}
	logrus.Infof("scheduled retry %d/%d for enrollment request %s", retryCount, model.MaxRetryCount, req.RequestID)
	return nil
}

func (e *Enrolld) rejectRequest(ctx context.Context, req *model.EnrollmentRequest, reason string) error {
	if err := e.datasource.MarkEnrollmentRequestTerminal(ctx, req.RequestID, model.StatusRejected, reason); err != nil {
		return err
	}
	if err := e.datasource.UpdateContactWorkflow(ctx, req.ContactID, model.WorkflowStageEnrollmentFailed, "review_enrollment_error", reason); err != nil {
		logrus.Errorf("failed to update contact %s workflow: %v", req.ContactID, err)
	}
	e.captureAnalytics(req.ContactID, "enrollment_rejected", map[string]interface{}{"reason": reason})
	return nil
}

func (e *Enrolld) failRequest(ctx context.Context, req *model.EnrollmentRequest, reason string) error {
	if err := e.datasource.MarkEnrollmentRequestTerminal(ctx, req.RequestID, model.StatusFailed, reason); err != nil {
		return err
	}
	if err := e.datasource.UpdateContactWorkflow(ctx, req.ContactID, model.WorkflowStageEnrollmentFailed, "review_enrollment_error", reason); err != nil {
		logrus.Errorf("failed to update contact %s workflow: %v", req.ContactID, err)
	}
	notification.NotifyError(fmt.Errorf("enrollment request %s exhausted retries: %s", req.RequestID, reason))
	e.captureAnalytics(req.ContactID, "enrollment_failed", map[string]interface{}{"reason": reason})
	return nil
}

func (e *Enrolld) markDuplicate(ctx context.Context, req *model.EnrollmentRequest, memberID string) error {
	reason := fmt.Sprintf("contact already has an active enrollment (member %s)", memberID)
	if err := e.datasource.MarkEnrollmentRequestTerminal(ctx, req.RequestID, model.StatusDuplicate, reason); err != nil {
		return err
	}
	logrus.Infof("enrollment request %s marked duplicate: %s", req.RequestID, reason)
	return nil
}

// SweepStalledRequests recovers requests that fell off the queue: queued
// rows whose original enqueue was lost, and processing rows abandoned by a
// worker that died after the claim. The latter are flipped back to queued
// before re-enqueueing so the claim guard accepts them again. Task ID
// deduplication makes re-enqueueing an already-queued request harmless.
func (e *Enrolld) SweepStalledRequests(ctx context.Context) error {
	stalled, err := e.datasource.GetStalledEnrollmentRequests(ctx, sweepMinLeadScore, time.Now().Add(-sweepMinAge), sweepBatchSize)
	if err != nil {
		return err
	}

	reclaimed, err := e.datasource.ReclaimStuckEnrollmentRequests(ctx, time.Now().Add(-sweepStuckThreshold), sweepBatchSize)
	if err != nil {
		return err
	}
	stalled = append(stalled, reclaimed...)

	for i := range stalled {
		req := stalled[i]
		if err := e.queue.Enqueue(ctx, &req); err != nil {
			logrus.Errorf("sweep failed to enqueue request %s: %v", req.RequestID, err)
		}
	}
	if len(reclaimed) > 0 {
		logrus.Warnf("sweep reclaimed %d enrollment requests stuck at processing", len(reclaimed))
	}
	if len(stalled) > 0 {
		logrus.Infof("sweep re-enqueued %d stalled enrollment requests", len(stalled))
	}
	return nil
}

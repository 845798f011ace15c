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
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/speedycredit/enrolld/internal/apierror"
	"github.com/speedycredit/enrolld/model"
)

// ErrUnknownMember is returned when a webhook references a member this
// system never enrolled. The gateway acknowledges these; we have nothing to
// act on.
var ErrUnknownMember = fmt.Errorf("no enrollment found for member")

// How long to wait for the enrollment row to land when a webhook races the
// success path's commit.
var (
	memberLookupInterval = 2 * time.Second
	memberLookupRetries  = uint64(4)
)

// ProcessWebhookEvent dispatches one verified partner event. Redelivered
// events are safe: report persistence dedupes on (contact, report) and
// expiry is a guarded transition. A nil return means the event was handled
// or deliberately ignored.
func (e *Enrolld) ProcessWebhookEvent(ctx context.Context, event model.WebhookEvent) error {
	ctx, span := tracer.Start(ctx, "Processing Partner Webhook Event")
	defer span.End()

	switch event.EventType {
	case model.EventReportReady, model.EventReportUpdated:
		return e.handleReportEvent(ctx, event)
	case model.EventSubscriptionExpired:
		return e.handleSubscriptionExpired(ctx, event)
	case model.EventAlertTriggered:
		return e.handleAlertTriggered(ctx, event)
	default:
		logrus.Infof("ignoring unknown webhook event type %q for member %s", event.EventType, event.MemberID)
		return nil
	}
}

// lookupEnrollmentByMember resolves a member ID to our enrollment row,
// consulting the cache first. Misses are retried over a short window
// because a report.ready webhook can arrive before the enrollment insert
// commits.
func (e *Enrolld) lookupEnrollmentByMember(ctx context.Context, memberID string) (*model.Enrollment, error) {
	cacheKey := fmt.Sprintf("enrollment:member:%s", memberID)
	if e.cache != nil {
		var cached model.Enrollment
		if err := e.cache.Get(ctx, cacheKey, &cached); err == nil && cached.MemberID == memberID {
			return &cached, nil
		}
	}

	var enrollment *model.Enrollment
	lookup := func() error {
		found, err := e.datasource.GetEnrollmentByMemberID(ctx, memberID)
		if err != nil {
			if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrNotFound {
				return err
			}
			return backoff.Permanent(err)
		}
		enrollment = found
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewConstantBackOff(memberLookupInterval), memberLookupRetries), ctx)
	if err := backoff.Retry(lookup, policy); err != nil {
		if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrNotFound {
			return nil, ErrUnknownMember
		}
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, cacheKey, enrollment, 15*time.Minute); err != nil {
			logrus.Errorf("failed to cache enrollment for member %s: %v", memberID, err)
		}
	}
	return enrollment, nil
}

func (e *Enrolld) handleReportEvent(ctx context.Context, event model.WebhookEvent) error {
	if event.ReportID == "" {
		logrus.Warnf("report event for member %s carries no report ID, ignoring", event.MemberID)
		return nil
	}

	enrollment, err := e.lookupEnrollmentByMember(ctx, event.MemberID)
	if err != nil {
		if err == ErrUnknownMember {
			logrus.Warnf("report event for unknown member %s, ignoring", event.MemberID)
			return nil
		}
		return err
	}

	body, err := e.partner.FetchReport(ctx, event.MemberID, event.ReportID)
	if err != nil {
		return err
	}

	return e.PersistReport(ctx, enrollment, event.ReportID, body)
}

func (e *Enrolld) handleSubscriptionExpired(ctx context.Context, event model.WebhookEvent) error {
	enrollment, err := e.lookupEnrollmentByMember(ctx, event.MemberID)
	if err != nil {
		if err == ErrUnknownMember {
			logrus.Warnf("expiry event for unknown member %s, ignoring", event.MemberID)
			return nil
		}
		return err
	}

	if err := e.datasource.ExpireEnrollment(ctx, event.MemberID); err != nil {
		if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrNotFound {
			// Already expired; redelivery.
			return nil
		}
		return err
	}

	if e.cache != nil {
		if err := e.cache.Delete(ctx, fmt.Sprintf("enrollment:member:%s", event.MemberID)); err != nil {
			logrus.Errorf("failed to drop cached enrollment for member %s: %v", event.MemberID, err)
		}
	}

	if err := e.datasource.UpdateContactWorkflow(ctx, enrollment.ContactID, model.WorkflowStageExpired, "offer_renewal", ""); err != nil {
		logrus.Errorf("failed to update contact %s workflow after expiry: %v", enrollment.ContactID, err)
	}

	if err := e.queue.QueueNotification(ctx, NotificationPayload{
		Type:      "renewal_followup",
		ContactID: enrollment.ContactID,
		Data: map[string]interface{}{
			"member_id":         event.MemberID,
			"subscription_type": enrollment.SubscriptionType,
		},
	}); err != nil {
		logrus.Errorf("failed to queue renewal followup for contact %s: %v", enrollment.ContactID, err)
	}

	e.captureAnalytics(enrollment.ContactID, "subscription_expired", map[string]interface{}{
		"subscription_type": enrollment.SubscriptionType,
	})
	return nil
}

func (e *Enrolld) handleAlertTriggered(ctx context.Context, event model.WebhookEvent) error {
	enrollment, err := e.lookupEnrollmentByMember(ctx, event.MemberID)
	if err != nil {
		if err == ErrUnknownMember {
			logrus.Warnf("alert event for unknown member %s, ignoring", event.MemberID)
			return nil
		}
		return err
	}

	return e.queue.QueueNotification(ctx, NotificationPayload{
		Type:      "credit_alert",
		ContactID: enrollment.ContactID,
		Data: map[string]interface{}{
			"member_id":     event.MemberID,
			"alert_title":   event.AlertTitle,
			"alert_message": event.AlertMessage,
		},
	})
}

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

	"github.com/sirupsen/logrus"
	"github.com/speedycredit/enrolld/config"
	"github.com/speedycredit/enrolld/internal/blobstore"
	"github.com/speedycredit/enrolld/model"
)

// PersistReport archives one report body: object store first, then the
// artifact row, then the enrollment counters. The artifact insert dedupes on
// (contact, report), so a redelivered webhook re-uploads the object under a
// new key but records nothing and bumps no counters.
func (e *Enrolld) PersistReport(ctx context.Context, enrollment *model.Enrollment, reportID string, body []byte) error {
	ctx, span := tracer.Start(ctx, "Persisting Credit Report")
	defer span.End()

	cnf, err := config.Fetch()
	if err != nil {
		return err
	}

	fetchedAt := time.Now()
	key := blobstore.ReportKey(enrollment.ContactID, reportID, fetchedAt)

	if err := e.blob.Put(ctx, key, body); err != nil {
		return fmt.Errorf("failed to store report %s for member %s: %w", reportID, enrollment.MemberID, err)
	}

	expiry := cnf.Storage.SignedURLExpiry()
	signedURL, err := e.blob.SignedURL(key, expiry)
	if err != nil {
		return fmt.Errorf("failed to sign report url for %s: %w", key, err)
	}

	inserted, err := e.datasource.InsertReportArtifact(ctx, model.ReportArtifact{
		ContactID:  enrollment.ContactID,
		ReportID:   reportID,
		MemberID:   enrollment.MemberID,
		StorageKey: key,
		SignedURL:  signedURL,
		ExpiresAt:  fetchedAt.Add(expiry),
		FetchedAt:  fetchedAt,
	})
	if err != nil {
		return err
	}
	if !inserted {
		logrus.Infof("report %s for member %s already recorded, skipping delivery update", reportID, enrollment.MemberID)
		return nil
	}

	if err := e.datasource.RecordReportDelivery(ctx, enrollment.MemberID, reportID, signedURL); err != nil {
		return err
	}
	if err := e.datasource.UpdateContactWorkflow(ctx, enrollment.ContactID, model.WorkflowStageReportReceived, "review_credit_report", ""); err != nil {
		logrus.Errorf("failed to update contact %s workflow after report delivery: %v", enrollment.ContactID, err)
	}

	e.captureAnalytics(enrollment.ContactID, "credit_report_received", map[string]interface{}{
		"report_id": reportID,
		"member_id": enrollment.MemberID,
	})
	logrus.Infof("stored report %s for member %s at %s", reportID, enrollment.MemberID, key)
	return nil
}

// PullMemberReport is the scheduled report fetch that runs when the partner
// never sends a report.ready webhook, typically 24 hours after enrollment.
// The pull asks for the member's latest report; the date-scoped report ID
// keeps one artifact per day at most.
func (e *Enrolld) PullMemberReport(ctx context.Context, payload ReportPullPayload) error {
	ctx, span := tracer.Start(ctx, "Pulling Scheduled Credit Report")
	defer span.End()

	enrollment, err := e.lookupEnrollmentByMember(ctx, payload.MemberID)
	if err != nil {
		if err == ErrUnknownMember {
			logrus.Warnf("scheduled pull for unknown member %s, dropping task", payload.MemberID)
			return nil
		}
		return err
	}
	if enrollment.Status != model.StatusActive {
		logrus.Infof("scheduled pull for member %s skipped, enrollment is %s", payload.MemberID, enrollment.Status)
		return nil
	}

	body, err := e.partner.FetchReport(ctx, payload.MemberID, "latest")
	if err != nil {
		return err
	}

	reportID := fmt.Sprintf("pull-%s", time.Now().Format("2006-01-02"))
	return e.PersistReport(ctx, enrollment, reportID, body)
}

// GetReportArtifacts lists a contact's stored reports, newest first.
func (e *Enrolld) GetReportArtifacts(ctx context.Context, contactID string, limit int) ([]model.ReportArtifact, error) {
	return e.datasource.GetReportArtifacts(ctx, contactID, limit)
}

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

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/speedycredit/enrolld/internal/apierror"
	"github.com/speedycredit/enrolld/model"
)

const enrollmentColumns = `
	enrollment_id, contact_id, member_id, username, COALESCE(credentials_hash, ''), subscription_type, product_code,
	status, report_count, COALESCE(last_report_id, ''), COALESCE(last_report_url, ''), last_report_pull,
	next_billing_date, monitoring_active, meta_data, created_at, expired_at
`

// CreateEnrollment inserts the enrollment row. The partial unique index on
// (contact_id) WHERE status = 'active' is the duplicate guard: a second
// active enrollment for the same contact comes back as ErrConflict no
// matter how the submissions raced.
func (d Datasource) CreateEnrollment(ctx context.Context, enrollment model.Enrollment) (model.Enrollment, error) {
	metaDataJSON, err := json.Marshal(enrollment.MetaData)
	if err != nil {
		return model.Enrollment{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	if enrollment.EnrollmentID == "" {
		enrollment.EnrollmentID = model.GenerateUUIDWithSuffix("enrollment")
	}
	if enrollment.Status == "" {
		enrollment.Status = model.StatusActive
	}
	enrollment.CreatedAt = time.Now()

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO enrolld.enrollments (enrollment_id, contact_id, member_id, username, credentials_hash, subscription_type, product_code, status, next_billing_date, monitoring_active, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, enrollment.EnrollmentID, enrollment.ContactID, enrollment.MemberID, enrollment.Username, enrollment.CredentialsHash,
		enrollment.SubscriptionType, enrollment.ProductCode, enrollment.Status, enrollment.NextBillingDate, enrollment.MonitoringActive, metaDataJSON)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Enrollment{}, apierror.NewAPIError(apierror.ErrConflict, "Contact already has an active enrollment", err)
			default:
				return model.Enrollment{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Enrollment{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create enrollment", err)
	}

	return enrollment, nil
}

func scanEnrollment(row interface{ Scan(...interface{}) error }) (*model.Enrollment, error) {
	enrollment := model.Enrollment{}
	var metaDataJSON []byte
	var lastReportPull, nextBillingDate, expiredAt sql.NullTime

	err := row.Scan(&enrollment.EnrollmentID, &enrollment.ContactID, &enrollment.MemberID, &enrollment.Username,
		&enrollment.CredentialsHash, &enrollment.SubscriptionType, &enrollment.ProductCode,
		&enrollment.Status, &enrollment.ReportCount, &enrollment.LastReportID, &enrollment.LastReportURL, &lastReportPull,
		&nextBillingDate, &enrollment.MonitoringActive, &metaDataJSON, &enrollment.CreatedAt, &expiredAt)
	if err != nil {
		return nil, err
	}

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &enrollment.MetaData); err != nil {
			return nil, err
		}
	}
	if lastReportPull.Valid {
		enrollment.LastReportPull = &lastReportPull.Time
	}
	if nextBillingDate.Valid {
		enrollment.NextBillingDate = &nextBillingDate.Time
	}
	if expiredAt.Valid {
		enrollment.ExpiredAt = &expiredAt.Time
	}
	return &enrollment, nil
}

func (d Datasource) GetEnrollmentByID(ctx context.Context, enrollmentID string) (*model.Enrollment, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+enrollmentColumns+`
		FROM enrolld.enrollments
		WHERE enrollment_id = $1
	`, enrollmentID)

	enrollment, err := scanEnrollment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Enrollment not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve enrollment", err)
	}
	return enrollment, nil
}

func (d Datasource) GetEnrollmentByMemberID(ctx context.Context, memberID string) (*model.Enrollment, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+enrollmentColumns+`
		FROM enrolld.enrollments
		WHERE member_id = $1
	`, memberID)

	enrollment, err := scanEnrollment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Enrollment not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve enrollment", err)
	}
	return enrollment, nil
}

func (d Datasource) GetActiveEnrollmentByContactID(ctx context.Context, contactID string) (*model.Enrollment, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+enrollmentColumns+`
		FROM enrolld.enrollments
		WHERE contact_id = $1 AND status = $2
	`, contactID, model.StatusActive)

	enrollment, err := scanEnrollment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "No active enrollment for contact", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve enrollment", err)
	}
	return enrollment, nil
}

// ExpireEnrollment soft-expires the enrollment; the row stays for history.
func (d Datasource) ExpireEnrollment(ctx context.Context, memberID string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE enrolld.enrollments
		SET status = $2, monitoring_active = FALSE, expired_at = NOW()
		WHERE member_id = $1 AND status = $3
	`, memberID, model.StatusExpired, model.StatusActive)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to expire enrollment", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check enrollment expiry", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "No active enrollment for member", memberID)
	}
	return nil
}

// RecordReportDelivery bumps the report counter and the last-report fields
// in one atomic statement. Callers gate this on the artifact insert having
// actually inserted, which keeps the counter exact across redeliveries.
func (d Datasource) RecordReportDelivery(ctx context.Context, memberID, reportID, reportURL string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE enrolld.enrollments
		SET report_count = report_count + 1, last_report_id = $2, last_report_url = $3, last_report_pull = NOW()
		WHERE member_id = $1
	`, memberID, reportID, reportURL)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record report delivery", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check report delivery update", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Enrollment not found for member", memberID)
	}
	return nil
}

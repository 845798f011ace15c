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

	"github.com/speedycredit/enrolld/internal/apierror"
	"github.com/speedycredit/enrolld/model"
)

const enrollmentRequestColumns = `
	request_id, contact_id, contact_data, subscription_type, lead_score, COALESCE(lead_source, ''),
	status, retry_count, COALESCE(error, ''), meta_data, created_at, processed_at
`

func (d Datasource) CreateEnrollmentRequest(ctx context.Context, req model.EnrollmentRequest) (model.EnrollmentRequest, error) {
	contactDataJSON, err := json.Marshal(req.ContactData)
	if err != nil {
		return model.EnrollmentRequest{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal contact data", err)
	}
	metaDataJSON, err := json.Marshal(req.MetaData)
	if err != nil {
		return model.EnrollmentRequest{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	req.RequestID = model.GenerateUUIDWithSuffix("request")
	req.Status = model.StatusQueued
	req.RetryCount = 0
	req.CreatedAt = time.Now()

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO enrolld.enrollment_requests (request_id, contact_id, contact_data, subscription_type, lead_score, lead_source, status, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, req.RequestID, req.ContactID, contactDataJSON, req.SubscriptionType, req.LeadScore, req.LeadSource, req.Status, metaDataJSON)
	if err != nil {
		return model.EnrollmentRequest{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create enrollment request", err)
	}

	return req, nil
}

func scanEnrollmentRequest(row interface{ Scan(...interface{}) error }) (*model.EnrollmentRequest, error) {
	req := model.EnrollmentRequest{}
	var contactDataJSON, metaDataJSON []byte
	var processedAt sql.NullTime

	err := row.Scan(&req.RequestID, &req.ContactID, &contactDataJSON, &req.SubscriptionType, &req.LeadScore, &req.LeadSource,
		&req.Status, &req.RetryCount, &req.Error, &metaDataJSON, &req.CreatedAt, &processedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(contactDataJSON, &req.ContactData); err != nil {
		return nil, err
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &req.MetaData); err != nil {
			return nil, err
		}
	}
	if processedAt.Valid {
		req.ProcessedAt = &processedAt.Time
	}
	return &req, nil
}

func (d Datasource) GetEnrollmentRequest(ctx context.Context, requestID string) (*model.EnrollmentRequest, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+enrollmentRequestColumns+`
		FROM enrolld.enrollment_requests
		WHERE request_id = $1
	`, requestID)

	req, err := scanEnrollmentRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Enrollment request not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve enrollment request", err)
	}
	return req, nil
}

// ClaimEnrollmentRequest flips a queued or retry-scheduled request to
// processing and returns it. A request that is already terminal or being
// processed elsewhere is not claimable; callers get ErrConflict and must
// skip the work. This is what makes retry wake-ups safe to deliver more
// than once.
func (d Datasource) ClaimEnrollmentRequest(ctx context.Context, requestID string) (*model.EnrollmentRequest, error) {
	row := d.Conn.QueryRowContext(ctx, `
		UPDATE enrolld.enrollment_requests
		SET status = $2, claimed_at = NOW()
		WHERE request_id = $1 AND status IN ($3, $4)
		RETURNING `+enrollmentRequestColumns,
		requestID, model.StatusProcessing, model.StatusQueued, model.StatusRetryScheduled)

	req, err := scanEnrollmentRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrConflict, "Enrollment request is not claimable", requestID)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim enrollment request", err)
	}
	return req, nil
}

// MarkEnrollmentRequestTerminal records the final status of a request. The
// guard on the current status means at most one terminal transition wins;
// later attempts are reported as conflicts and must not re-run side
// effects.
func (d Datasource) MarkEnrollmentRequestTerminal(ctx context.Context, requestID, status, requestError string) error {
	if !model.IsTerminalStatus(status) {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "Status is not terminal", status)
	}

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE enrolld.enrollment_requests
		SET status = $2, error = $3, processed_at = NOW()
		WHERE request_id = $1
		  AND status NOT IN ($4, $5, $6, $7)
	`, requestID, status, requestError,
		model.StatusCompleted, model.StatusFailed, model.StatusDuplicate, model.StatusRejected)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to finalize enrollment request", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check enrollment request update", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, "Enrollment request already terminal", requestID)
	}
	return nil
}

// ScheduleEnrollmentRequestRetry bumps the retry counter and parks the
// request until its deferred task fires. Returns the new retry count.
func (d Datasource) ScheduleEnrollmentRequestRetry(ctx context.Context, requestID, requestError string) (int, error) {
	var retryCount int
	err := d.Conn.QueryRowContext(ctx, `
		UPDATE enrolld.enrollment_requests
		SET status = $2, retry_count = retry_count + 1, error = $3
		WHERE request_id = $1 AND status = $4
		RETURNING retry_count
	`, requestID, model.StatusRetryScheduled, requestError, model.StatusProcessing).Scan(&retryCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, apierror.NewAPIError(apierror.ErrConflict, "Enrollment request is not processing", requestID)
		}
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to schedule enrollment request retry", err)
	}
	return retryCount, nil
}

// ReclaimStuckEnrollmentRequests flips processing rows whose claim is older
// than the cutoff back to queued and returns them. A row can only sit at
// processing that long if the worker died mid-flight, so the sweep re-enqueues
// the returned requests; the claim guard then treats them like any other
// queued work.
func (d Datasource) ReclaimStuckEnrollmentRequests(ctx context.Context, claimedBefore time.Time, limit int) ([]model.EnrollmentRequest, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		UPDATE enrolld.enrollment_requests
		SET status = $1
		WHERE request_id IN (
			SELECT request_id FROM enrolld.enrollment_requests
			WHERE status = $2 AND claimed_at < $3
			ORDER BY claimed_at ASC
			LIMIT $4
		)
		RETURNING `+enrollmentRequestColumns,
		model.StatusQueued, model.StatusProcessing, claimedBefore, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to reclaim stuck enrollment requests", err)
	}
	defer rows.Close()

	requests := []model.EnrollmentRequest{}
	for rows.Next() {
		req, err := scanEnrollmentRequest(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan enrollment request", err)
		}
		requests = append(requests, *req)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over enrollment requests", err)
	}
	return requests, nil
}

// GetStalledEnrollmentRequests finds queued requests that never made it onto
// the queue, for the recovery sweep.
func (d Datasource) GetStalledEnrollmentRequests(ctx context.Context, minLeadScore int, olderThan time.Time, limit int) ([]model.EnrollmentRequest, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+enrollmentRequestColumns+`
		FROM enrolld.enrollment_requests
		WHERE status = $1 AND lead_score >= $2 AND created_at < $3
		ORDER BY created_at ASC
		LIMIT $4
	`, model.StatusQueued, minLeadScore, olderThan, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve stalled enrollment requests", err)
	}
	defer rows.Close()

	requests := []model.EnrollmentRequest{}
	for rows.Next() {
		req, err := scanEnrollmentRequest(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan enrollment request", err)
		}
		requests = append(requests, *req)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over enrollment requests", err)
	}
	return requests, nil
}

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
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/speedycredit/enrolld/internal/apierror"
	"github.com/speedycredit/enrolld/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enrollmentRow(e model.Enrollment) *sqlmock.Rows {
	metaDataJSON, _ := json.Marshal(e.MetaData)
	return sqlmock.NewRows([]string{
		"enrollment_id", "contact_id", "member_id", "username", "credentials_hash", "subscription_type", "product_code",
		"status", "report_count", "last_report_id", "last_report_url", "last_report_pull",
		"next_billing_date", "monitoring_active", "meta_data", "created_at", "expired_at",
	}).AddRow(e.EnrollmentID, e.ContactID, e.MemberID, e.Username, e.CredentialsHash, e.SubscriptionType, e.ProductCode,
		e.Status, e.ReportCount, e.LastReportID, e.LastReportURL, e.LastReportPull,
		e.NextBillingDate, e.MonitoringActive, metaDataJSON, e.CreatedAt, e.ExpiredAt)
}

func TestCreateEnrollment(t *testing.T) {
	ds, mock := newTestDatasource(t)

	nextBilling := time.Now().Add(7 * 24 * time.Hour)
	enrollment := model.Enrollment{
		ContactID:        "contact_1",
		MemberID:         "IDIQ-1001",
		Username:         "johsmi4821",
		CredentialsHash:  "abc123",
		SubscriptionType: "trial",
		ProductCode:      "TRIAL_7DAY",
		NextBillingDate:  &nextBilling,
		MonitoringActive: true,
	}

	mock.ExpectExec("INSERT INTO enrolld.enrollments").
		WithArgs(sqlmock.AnyArg(), enrollment.ContactID, enrollment.MemberID, enrollment.Username, enrollment.CredentialsHash,
			enrollment.SubscriptionType, enrollment.ProductCode, model.StatusActive, enrollment.NextBillingDate, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := ds.CreateEnrollment(context.Background(), enrollment)
	require.NoError(t, err)
	assert.Contains(t, created.EnrollmentID, "enrollment_")
	assert.Equal(t, model.StatusActive, created.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEnrollmentDuplicateContact(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec("INSERT INTO enrolld.enrollments").
		WillReturnError(&pq.Error{Code: "23505"}) // unique_violation

	_, err := ds.CreateEnrollment(context.Background(), model.Enrollment{
		ContactID: "contact_1",
		MemberID:  "IDIQ-1002",
	})
	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEnrollmentByMemberID(t *testing.T) {
	ds, mock := newTestDatasource(t)

	want := model.Enrollment{
		EnrollmentID:     "enrollment_abc",
		ContactID:        "contact_1",
		MemberID:         "IDIQ-1001",
		Username:         "johsmi4821",
		SubscriptionType: "basic",
		ProductCode:      "BASIC_MONTHLY",
		Status:           model.StatusActive,
		MonitoringActive: true,
		CreatedAt:        time.Now(),
	}

	mock.ExpectQuery("SELECT .+ FROM enrolld.enrollments WHERE member_id =").
		WithArgs(want.MemberID).
		WillReturnRows(enrollmentRow(want))

	got, err := ds.GetEnrollmentByMemberID(context.Background(), want.MemberID)
	require.NoError(t, err)
	assert.Equal(t, want.EnrollmentID, got.EnrollmentID)
	assert.Equal(t, want.MemberID, got.MemberID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveEnrollmentByContactIDNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT .+ FROM enrolld.enrollments WHERE contact_id =").
		WithArgs("contact_1", model.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id"}))

	_, err := ds.GetActiveEnrollmentByContactID(context.Background(), "contact_1")
	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireEnrollment(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec("UPDATE enrolld.enrollments").
		WithArgs("IDIQ-1001", model.StatusExpired, model.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, ds.ExpireEnrollment(context.Background(), "IDIQ-1001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireEnrollmentAlreadyExpired(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec("UPDATE enrolld.enrollments").
		WithArgs("IDIQ-1001", model.StatusExpired, model.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := ds.ExpireEnrollment(context.Background(), "IDIQ-1001")
	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordReportDelivery(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec("UPDATE enrolld.enrollments").
		WithArgs("IDIQ-1001", "RPT-9", "https://signed.example/report").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ds.RecordReportDelivery(context.Background(), "IDIQ-1001", "RPT-9", "https://signed.example/report")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

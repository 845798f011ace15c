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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/speedycredit/enrolld/internal/apierror"
	"github.com/speedycredit/enrolld/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateContact(t *testing.T) {
	ds, mock := newTestDatasource(t)

	contact := model.Contact{
		FirstName: "Maria",
		LastName:  "Lopez",
		Email:     "maria@example.com",
	}

	mock.ExpectExec("INSERT INTO enrolld.contacts").
		WithArgs(sqlmock.AnyArg(), contact.FirstName, contact.LastName, contact.Email, "new", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := ds.CreateContact(context.Background(), contact)
	require.NoError(t, err)
	assert.Contains(t, created.ContactID, "contact_")
	assert.Equal(t, "new", created.Workflow.Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateContactDuplicate(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec("INSERT INTO enrolld.contacts").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := ds.CreateContact(context.Background(), model.Contact{
		ContactID: "contact_1",
		FirstName: "Maria",
		LastName:  "Lopez",
		Email:     "maria@example.com",
	})
	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
}

func TestGetContactByID(t *testing.T) {
	ds, mock := newTestDatasource(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"contact_id", "first_name", "last_name", "email", "member_id", "enrollment_id", "idiq_status",
		"workflow_stage", "workflow_next_action", "workflow_error", "workflow_last_action", "created_at", "meta_data",
	}).AddRow("contact_1", "Maria", "Lopez", "maria@example.com", "IDIQ-1001", "enrollment_abc", "active",
		model.WorkflowStageEnrolled, "", "", now, now, []byte(`{"source":"webform"}`))

	mock.ExpectQuery("SELECT .+ FROM enrolld.contacts WHERE contact_id =").
		WithArgs("contact_1").
		WillReturnRows(rows)

	got, err := ds.GetContactByID(context.Background(), "contact_1")
	require.NoError(t, err)
	assert.Equal(t, "IDIQ-1001", got.MemberID)
	assert.Equal(t, model.WorkflowStageEnrolled, got.Workflow.Stage)
	assert.Equal(t, "webform", got.MetaData["source"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateContactWorkflow(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec("UPDATE enrolld.contacts").
		WithArgs("contact_1", model.WorkflowStageEnrollmentFailed, "review_enrollment_error", "partner rejected enrollment").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ds.UpdateContactWorkflow(context.Background(), "contact_1", model.WorkflowStageEnrollmentFailed, "review_enrollment_error", "partner rejected enrollment")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateContactEnrollmentNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec("UPDATE enrolld.contacts").
		WithArgs("contact_missing", "IDIQ-1001", "enrollment_abc", "active").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := ds.UpdateContactEnrollment(context.Background(), "contact_missing", "IDIQ-1001", "enrollment_abc", "active")
	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

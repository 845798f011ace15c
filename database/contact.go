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

func (d Datasource) CreateContact(ctx context.Context, contact model.Contact) (model.Contact, error) {
	metaDataJSON, err := json.Marshal(contact.MetaData)
	if err != nil {
		return model.Contact{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	if contact.ContactID == "" {
		contact.ContactID = model.GenerateUUIDWithSuffix("contact")
	}
	contact.CreatedAt = time.Now()
	if contact.Workflow.Stage == "" {
		contact.Workflow.Stage = "new"
	}
	contact.Workflow.LastAction = contact.CreatedAt

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO enrolld.contacts (contact_id, first_name, last_name, email, workflow_stage, workflow_last_action, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, contact.ContactID, contact.FirstName, contact.LastName, contact.Email, contact.Workflow.Stage, contact.Workflow.LastAction, metaDataJSON)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "unique_violation" {
			return model.Contact{}, apierror.NewAPIError(apierror.ErrConflict, "Contact with this ID already exists", err)
		}
		return model.Contact{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create contact", err)
	}

	return contact, nil
}

func (d Datasource) GetContactByID(ctx context.Context, id string) (*model.Contact, error) {
	contact := model.Contact{}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT contact_id, first_name, last_name, email, COALESCE(member_id, ''), COALESCE(enrollment_id, ''), COALESCE(idiq_status, ''),
			COALESCE(workflow_stage, ''), COALESCE(workflow_next_action, ''), COALESCE(workflow_error, ''), COALESCE(workflow_last_action, created_at), created_at, meta_data
		FROM enrolld.contacts
		WHERE contact_id = $1
	`, id)

	var metaDataJSON []byte
	err := row.Scan(&contact.ContactID, &contact.FirstName, &contact.LastName, &contact.Email,
		&contact.MemberID, &contact.EnrollmentID, &contact.IdiqStatus,
		&contact.Workflow.Stage, &contact.Workflow.NextAction, &contact.Workflow.Error, &contact.Workflow.LastAction,
		&contact.CreatedAt, &metaDataJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Contact not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve contact", err)
	}

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &contact.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
		}
	}

	return &contact, nil
}

// UpdateContactWorkflow moves the contact's workflow pointer. Terminal
// pipeline transitions call this so operators can see where a contact
// stopped.
func (d Datasource) UpdateContactWorkflow(ctx context.Context, contactID, stage, nextAction, workflowError string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE enrolld.contacts
		SET workflow_stage = $2, workflow_next_action = $3, workflow_error = $4, workflow_last_action = NOW()
		WHERE contact_id = $1
	`, contactID, stage, nextAction, workflowError)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update contact workflow", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check contact workflow update", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Contact not found", contactID)
	}
	return nil
}

func (d Datasource) UpdateContactEnrollment(ctx context.Context, contactID, memberID, enrollmentID, status string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE enrolld.contacts
		SET member_id = $2, enrollment_id = $3, idiq_status = $4
		WHERE contact_id = $1
	`, contactID, memberID, enrollmentID, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update contact enrollment", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check contact enrollment update", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Contact not found", contactID)
	}
	return nil
}

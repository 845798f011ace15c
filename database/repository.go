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
	"time"

	"github.com/speedycredit/enrolld/model"
)

// IDataSource is the persistence surface the orchestrator depends on.
type IDataSource interface {
	contact
	enrollmentRequest
	enrollment
	reportArtifact
}

type contact interface {
	CreateContact(ctx context.Context, c model.Contact) (model.Contact, error)
	GetContactByID(ctx context.Context, id string) (*model.Contact, error)
	UpdateContactWorkflow(ctx context.Context, contactID, stage, nextAction, workflowError string) error
	UpdateContactEnrollment(ctx context.Context, contactID, memberID, enrollmentID, status string) error
}

type enrollmentRequest interface {
	CreateEnrollmentRequest(ctx context.Context, req model.EnrollmentRequest) (model.EnrollmentRequest, error)
	GetEnrollmentRequest(ctx context.Context, requestID string) (*model.EnrollmentRequest, error)
	ClaimEnrollmentRequest(ctx context.Context, requestID string) (*model.EnrollmentRequest, error)
	MarkEnrollmentRequestTerminal(ctx context.Context, requestID, status, requestError string) error
	ScheduleEnrollmentRequestRetry(ctx context.Context, requestID, requestError string) (int, error)
	GetStalledEnrollmentRequests(ctx context.Context, minLeadScore int, olderThan time.Time, limit int) ([]model.EnrollmentRequest, error)
	ReclaimStuckEnrollmentRequests(ctx context.Context, claimedBefore time.Time, limit int) ([]model.EnrollmentRequest, error)
}

type enrollment interface {
	CreateEnrollment(ctx context.Context, e model.Enrollment) (model.Enrollment, error)
	GetEnrollmentByID(ctx context.Context, enrollmentID string) (*model.Enrollment, error)
	GetEnrollmentByMemberID(ctx context.Context, memberID string) (*model.Enrollment, error)
	GetActiveEnrollmentByContactID(ctx context.Context, contactID string) (*model.Enrollment, error)
	ExpireEnrollment(ctx context.Context, memberID string) error
	RecordReportDelivery(ctx context.Context, memberID, reportID, reportURL string) error
}

type reportArtifact interface {
	InsertReportArtifact(ctx context.Context, artifact model.ReportArtifact) (bool, error)
	GetReportArtifacts(ctx context.Context, contactID string, limit int) ([]model.ReportArtifact, error)
}

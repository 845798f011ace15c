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
package mocks

import (
	"context"
	"time"

	"github.com/speedycredit/enrolld/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Contact methods

func (m *MockDataSource) CreateContact(ctx context.Context, c model.Contact) (model.Contact, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(model.Contact), args.Error(1)
}

func (m *MockDataSource) GetContactByID(ctx context.Context, id string) (*model.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *MockDataSource) UpdateContactWorkflow(ctx context.Context, contactID, stage, nextAction, workflowError string) error {
	args := m.Called(ctx, contactID, stage, nextAction, workflowError)
	return args.Error(0)
}

func (m *MockDataSource) UpdateContactEnrollment(ctx context.Context, contactID, memberID, enrollmentID, status string) error {
	args := m.Called(ctx, contactID, memberID, enrollmentID, status)
	return args.Error(0)
}

// Enrollment request methods

func (m *MockDataSource) CreateEnrollmentRequest(ctx context.Context, req model.EnrollmentRequest) (model.EnrollmentRequest, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.EnrollmentRequest), args.Error(1)
}

func (m *MockDataSource) GetEnrollmentRequest(ctx context.Context, requestID string) (*model.EnrollmentRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EnrollmentRequest), args.Error(1)
}

func (m *MockDataSource) ClaimEnrollmentRequest(ctx context.Context, requestID string) (*model.EnrollmentRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EnrollmentRequest), args.Error(1)
}

func (m *MockDataSource) MarkEnrollmentRequestTerminal(ctx context.Context, requestID, status, requestError string) error {
	args := m.Called(ctx, requestID, status, requestError)
	return args.Error(0)
}

func (m *MockDataSource) ScheduleEnrollmentRequestRetry(ctx context.Context, requestID, requestError string) (int, error) {
	args := m.Called(ctx, requestID, requestError)
	return args.Int(0), args.Error(1)
}

func (m *MockDataSource) GetStalledEnrollmentRequests(ctx context.Context, minLeadScore int, olderThan time.Time, limit int) ([]model.EnrollmentRequest, error) {
	args := m.Called(ctx, minLeadScore, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EnrollmentRequest), args.Error(1)
}

func (m *MockDataSource) ReclaimStuckEnrollmentRequests(ctx context.Context, claimedBefore time.Time, limit int) ([]model.EnrollmentRequest, error) {
	args := m.Called(ctx, claimedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EnrollmentRequest), args.Error(1)
}

// Enrollment methods

func (m *MockDataSource) CreateEnrollment(ctx context.Context, e model.Enrollment) (model.Enrollment, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(model.Enrollment), args.Error(1)
}

func (m *MockDataSource) GetEnrollmentByID(ctx context.Context, enrollmentID string) (*model.Enrollment, error) {
	args := m.Called(ctx, enrollmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Enrollment), args.Error(1)
}

func (m *MockDataSource) GetEnrollmentByMemberID(ctx context.Context, memberID string) (*model.Enrollment, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Enrollment), args.Error(1)
}

func (m *MockDataSource) GetActiveEnrollmentByContactID(ctx context.Context, contactID string) (*model.Enrollment, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Enrollment), args.Error(1)
}

func (m *MockDataSource) ExpireEnrollment(ctx context.Context, memberID string) error {
	args := m.Called(ctx, memberID)
	return args.Error(0)
}

func (m *MockDataSource) RecordReportDelivery(ctx context.Context, memberID, reportID, reportURL string) error {
	args := m.Called(ctx, memberID, reportID, reportURL)
	return args.Error(0)
}

// Report artifact methods

func (m *MockDataSource) InsertReportArtifact(ctx context.Context, artifact model.ReportArtifact) (bool, error) {
	args := m.Called(ctx, artifact)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) GetReportArtifacts(ctx context.Context, contactID string, limit int) ([]model.ReportArtifact, error) {
	args := m.Called(ctx, contactID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReportArtifact), args.Error(1)
}

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

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	model2 "github.com/speedycredit/enrolld/api/model"
	"github.com/speedycredit/enrolld/config"
	"github.com/speedycredit/enrolld/internal/apierror"
	"github.com/speedycredit/enrolld/internal/request"
	"github.com/speedycredit/enrolld/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	err := json.NewDecoder(resp.Body).Decode(&s.Response)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// mockService scripts the orchestrator for handler tests.
type mockService struct {
	mock.Mock
}

func (m *mockService) RecordEnrollmentRequest(ctx context.Context, req model.EnrollmentRequest) (model.EnrollmentRequest, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.EnrollmentRequest), args.Error(1)
}

func (m *mockService) GetEnrollmentRequest(ctx context.Context, requestID string) (*model.EnrollmentRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EnrollmentRequest), args.Error(1)
}

func (m *mockService) GetEnrollment(ctx context.Context, enrollmentID string) (*model.Enrollment, error) {
	args := m.Called(ctx, enrollmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Enrollment), args.Error(1)
}

func (m *mockService) GetActiveEnrollmentForContact(ctx context.Context, contactID string) (*model.Enrollment, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Enrollment), args.Error(1)
}

func (m *mockService) CreateContact(ctx context.Context, contact model.Contact) (model.Contact, error) {
	args := m.Called(ctx, contact)
	return args.Get(0).(model.Contact), args.Error(1)
}

func (m *mockService) GetContact(ctx context.Context, contactID string) (*model.Contact, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *mockService) GetReportArtifacts(ctx context.Context, contactID string, limit int) ([]model.ReportArtifact, error) {
	args := m.Called(ctx, contactID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReportArtifact), args.Error(1)
}

func (m *mockService) ProcessWebhookEvent(ctx context.Context, event model.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func setupRouter() (*gin.Engine, *mockService) {
	config.MockConfig(&config.Configuration{
		Partner: config.PartnerConfig{WebhookSecret: "webhook-secret"},
	})
	service := new(mockService)
	router := NewAPI(service).Router()
	return router, service
}

func TestCreateEnrollmentRequestAPI(t *testing.T) {
	router, service := setupRouter()

	tests := []struct {
		name         string
		payload      model2.CreateEnrollmentRequest
		expectedCode int
	}{
		{
			name: "Valid request",
			payload: model2.CreateEnrollmentRequest{
				ContactID:        "contact_1",
				SubscriptionType: "premium",
				LeadScore:        8,
				ContactData: model.ContactData{
					FirstName: gofakeit.FirstName(),
					LastName:  gofakeit.LastName(),
					Email:     gofakeit.Email(),
				},
			},
			expectedCode: http.StatusCreated,
		},
		{
			name: "Missing contact id",
			payload: model2.CreateEnrollmentRequest{
				SubscriptionType: "premium",
			},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Missing subscription type",
			payload: model2.CreateEnrollmentRequest{
				ContactID: "contact_1",
			},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.expectedCode == http.StatusCreated {
				created := tt.payload.ToEnrollmentRequest()
				created.RequestID = "request_abc"
				created.Status = model.StatusQueued
				service.On("RecordEnrollmentRequest", mock.Anything, tt.payload.ToEnrollmentRequest()).Return(created, nil).Once()
			}

			payloadBytes, _ := request.ToJsonReq(&tt.payload)
			var response model.EnrollmentRequest
			testRequest := TestRequest{
				Payload:  payloadBytes,
				Response: &response,
				Method:   "POST",
				Route:    "/enrollment-requests",
				Router:   router,
			}

			resp, err := SetUpTestRequest(testRequest)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedCode, resp.Code)

			if tt.expectedCode == http.StatusCreated {
				assert.Equal(t, "request_abc", response.RequestID)
				assert.Equal(t, model.StatusQueued, response.Status)
			}
		})
	}
	service.AssertExpectations(t)
}

func TestGetEnrollmentRequestAPI(t *testing.T) {
	router, service := setupRouter()

	service.On("GetEnrollmentRequest", mock.Anything, "request_abc").
		Return(&model.EnrollmentRequest{RequestID: "request_abc", Status: model.StatusCompleted}, nil)

	var response model.EnrollmentRequest
	resp, err := SetUpTestRequest(TestRequest{
		Response: &response,
		Method:   "GET",
		Route:    "/enrollment-requests/request_abc",
		Router:   router,
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.StatusCompleted, response.Status)
}

func TestGetEnrollmentRequestNotFound(t *testing.T) {
	router, service := setupRouter()

	service.On("GetEnrollmentRequest", mock.Anything, "request_missing").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "Enrollment request not found", nil))

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Response: &response,
		Method:   "GET",
		Route:    "/enrollment-requests/request_missing",
		Router:   router,
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetContactEnrollmentAPI(t *testing.T) {
	router, service := setupRouter()

	service.On("GetActiveEnrollmentForContact", mock.Anything, "contact_1").
		Return(&model.Enrollment{EnrollmentID: "enrollment_1", ContactID: "contact_1", MemberID: "IDIQ-1001", Status: model.StatusActive}, nil)

	var response model.Enrollment
	resp, err := SetUpTestRequest(TestRequest{
		Response: &response,
		Method:   "GET",
		Route:    "/contacts/contact_1/enrollment",
		Router:   router,
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "IDIQ-1001", response.MemberID)
}

func TestCreateContactAPI(t *testing.T) {
	router, service := setupRouter()

	payload := model2.CreateContact{
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Email:     gofakeit.Email(),
	}
	created := payload.ToContact()
	created.ContactID = "contact_new"
	service.On("CreateContact", mock.Anything, payload.ToContact()).Return(created, nil)

	payloadBytes, _ := request.ToJsonReq(&payload)
	var response model.Contact
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  payloadBytes,
		Response: &response,
		Method:   "POST",
		Route:    "/contacts",
		Router:   router,
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "contact_new", response.ContactID)
}

func TestCreateContactAPIInvalidEmail(t *testing.T) {
	router, _ := setupRouter()

	payload := model2.CreateContact{FirstName: "A", LastName: "B", Email: "nope"}
	payloadBytes, _ := request.ToJsonReq(&payload)
	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  payloadBytes,
		Response: &response,
		Method:   "POST",
		Route:    "/contacts",
		Router:   router,
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetContactReportsAPI(t *testing.T) {
	router, service := setupRouter()

	service.On("GetReportArtifacts", mock.Anything, "contact_1", 5).
		Return([]model.ReportArtifact{{ArtifactID: "artifact_1", ReportID: "rpt_9"}}, nil)

	var response []model.ReportArtifact
	resp, err := SetUpTestRequest(TestRequest{
		Response: &response,
		Method:   "GET",
		Route:    fmt.Sprintf("/contacts/%s/reports?limit=%d", "contact_1", 5),
		Router:   router,
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, response, 1)
}

func TestGetContactReportsAPIBadLimit(t *testing.T) {
	router, _ := setupRouter()

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Response: &response,
		Method:   "GET",
		Route:    "/contacts/contact_1/reports?limit=9000",
		Router:   router,
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

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
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/speedycredit/enrolld/config"
	"github.com/speedycredit/enrolld/database/mocks"
	"github.com/speedycredit/enrolld/model"
)

// stubPartnerClient scripts partner responses for the state machine tests.
type stubPartnerClient struct {
	mu sync.Mutex

	submitResult *model.EnrollmentResult
	submitErr    error
	submitCalls  []model.PartnerEnrollmentPayload

	reportBody []byte
	reportErr  error
	fetchCalls []string
}

func (s *stubPartnerClient) SubmitEnrollment(_ context.Context, payload model.PartnerEnrollmentPayload) (*model.EnrollmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitCalls = append(s.submitCalls, payload)
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	result := *s.submitResult
	result.Username = payload.Credentials.Username
	result.TemporaryPassword = payload.Credentials.Password
	return &result, nil
}

func (s *stubPartnerClient) FetchReport(_ context.Context, memberID, reportID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls = append(s.fetchCalls, fmt.Sprintf("%s/%s", memberID, reportID))
	if s.reportErr != nil {
		return nil, s.reportErr
	}
	return s.reportBody, nil
}

// stubBlobStore records uploads and mints deterministic signed URLs.
type stubBlobStore struct {
	mu     sync.Mutex
	puts   map[string][]byte
	putErr error
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{puts: map[string][]byte{}}
}

func (s *stubBlobStore) Put(_ context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.puts[key] = body
	return nil
}

func (s *stubBlobStore) SignedURL(key string, _ time.Duration) (string, error) {
	return "https://bucket.test/" + key + "?signed=1", nil
}

// newTestEnrolld wires an orchestrator against a miniredis-backed queue, a
// mocked datasource, a scripted partner and an in-memory blob store.
func newTestEnrolld(t *testing.T) (*Enrolld, *mocks.MockDataSource, *stubPartnerClient, *stubBlobStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
		Partner: config.PartnerConfig{
			BaseURL:        "https://partner.test",
			PartnerID:      "partner-123",
			APIKey:         "api-key",
			APISecret:      "api-secret",
			WebhookSecret:  "webhook-secret",
			TimeoutSec:     5,
			PortalLoginURL: "https://portal.test/login",
		},
		Storage: config.StorageConfig{S3BucketName: "enrolld-reports", S3Region: "us-east-1", SignedURLHours: 168},
		Queue: config.QueueConfig{
			EnrollmentQueue:   "new:enrollment",
			ReportPullQueue:   "new:report_pull",
			NotificationQueue: "new:notification",
		},
	})

	cnf, err := config.Fetch()
	if err != nil {
		t.Fatal(err)
	}

	datasource := new(mocks.MockDataSource)
	partner := &stubPartnerClient{}
	blob := newStubBlobStore()

	e := &Enrolld{
		queue:      NewQueue(cnf),
		datasource: datasource,
		partner:    partner,
		blob:       blob,
	}
	return e, datasource, partner, blob
}

func validContactData() model.ContactData {
	return model.ContactData{
		FirstName:   "Jordan",
		LastName:    "Avery",
		Email:       "jordan.avery@example.com",
		Phone:       "(555) 201-3344",
		DateOfBirth: "1988-04-12",
		SSNLast4:    "4321",
		Address: model.Address{
			Street: "12 Elm Street",
			City:   "Austin",
			State:  "TX",
			Zip:    "78701",
		},
	}
}

func queuedRequest(requestID string) *model.EnrollmentRequest {
	return &model.EnrollmentRequest{
		RequestID:        requestID,
		ContactID:        "contact_1",
		ContactData:      validContactData(),
		SubscriptionType: "premium",
		LeadScore:        8,
		LeadSource:       "web_form",
		Status:           model.StatusProcessing,
		CreatedAt:        time.Now(),
	}
}

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
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/speedycredit/enrolld/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestPersistReport(t *testing.T) {
	e, datasource, _, blob := newTestEnrolld(t)
	enrollment := activeEnrollment()
	body := []byte(`{"bureaus":{"equifax":{"score":688}}}`)

	datasource.On("InsertReportArtifact", mock.Anything, mock.MatchedBy(func(a model.ReportArtifact) bool {
		return strings.HasPrefix(a.StorageKey, "credit-reports/contact_1/rpt_9_") &&
			strings.Contains(a.SignedURL, a.StorageKey) &&
			a.ExpiresAt.Sub(a.FetchedAt) == 168*time.Hour
	})).Return(true, nil)
	datasource.On("RecordReportDelivery", mock.Anything, "IDIQ-1001", "rpt_9", mock.Anything).Return(nil)
	datasource.On("UpdateContactWorkflow", mock.Anything, "contact_1", model.WorkflowStageReportReceived, "review_credit_report", "").Return(nil)

	err := e.PersistReport(context.Background(), enrollment, "rpt_9", body)
	assert.NoError(t, err)

	assert.Len(t, blob.puts, 1)
	for key, stored := range blob.puts {
		assert.True(t, strings.HasPrefix(key, "credit-reports/contact_1/rpt_9_"))
		assert.Equal(t, body, stored)
	}
	datasource.AssertExpectations(t)
}

func TestPersistReportUploadFailure(t *testing.T) {
	e, datasource, _, blob := newTestEnrolld(t)
	blob.putErr = errors.New("s3 unavailable")

	err := e.PersistReport(context.Background(), activeEnrollment(), "rpt_9", []byte(`{}`))
	assert.Error(t, err)
	datasource.AssertNotCalled(t, "InsertReportArtifact", mock.Anything, mock.Anything)
}

func TestPullMemberReport(t *testing.T) {
	fastLookups(t)
	e, datasource, partner, blob := newTestEnrolld(t)

	partner.reportBody = []byte(`{"bureaus":{"experian":{"score":701}}}`)
	wantReportID := fmt.Sprintf("pull-%s", time.Now().Format("2006-01-02"))

	datasource.On("GetEnrollmentByMemberID", mock.Anything, "IDIQ-1001").Return(activeEnrollment(), nil)
	datasource.On("InsertReportArtifact", mock.Anything, mock.MatchedBy(func(a model.ReportArtifact) bool {
		return a.ReportID == wantReportID
	})).Return(true, nil)
	datasource.On("RecordReportDelivery", mock.Anything, "IDIQ-1001", wantReportID, mock.Anything).Return(nil)
	datasource.On("UpdateContactWorkflow", mock.Anything, "contact_1", model.WorkflowStageReportReceived, "review_credit_report", "").Return(nil)

	err := e.PullMemberReport(context.Background(), ReportPullPayload{MemberID: "IDIQ-1001", ContactID: "contact_1"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"IDIQ-1001/latest"}, partner.fetchCalls)
	assert.Len(t, blob.puts, 1)
	datasource.AssertExpectations(t)
}

func TestPullMemberReportSkipsExpiredEnrollment(t *testing.T) {
	fastLookups(t)
	e, datasource, partner, _ := newTestEnrolld(t)

	expired := activeEnrollment()
	expired.Status = model.StatusExpired
	datasource.On("GetEnrollmentByMemberID", mock.Anything, "IDIQ-1001").Return(expired, nil)

	err := e.PullMemberReport(context.Background(), ReportPullPayload{MemberID: "IDIQ-1001", ContactID: "contact_1"})
	assert.NoError(t, err)
	assert.Empty(t, partner.fetchCalls)
}

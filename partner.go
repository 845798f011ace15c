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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"github.com/speedycredit/enrolld/config"
	"github.com/speedycredit/enrolld/internal/signature"
	"github.com/speedycredit/enrolld/model"

	"context"
)

// ErrorKind classifies a failed partner call. The state machine branches on
// it: rejections are terminal, transport and partner faults are retried.
type ErrorKind string

const (
	// ErrKindRejection is a structured business rejection (4xx). Retrying
	// the same payload cannot succeed.
	ErrKindRejection ErrorKind = "rejection"
	// ErrKindTransport means the request never completed: dial failure,
	// reset, timeout, or an open circuit breaker.
	ErrKindTransport ErrorKind = "transport"
	// ErrKindPartner is a partner-side fault: 5xx or a malformed response.
	ErrKindPartner ErrorKind = "partner"
)

// PartnerError is the tagged error every partner call failure surfaces as.
type PartnerError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *PartnerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("partner %s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("partner %s error: %s", e.Kind, e.Message)
}

func (e *PartnerError) Unwrap() error {
	return e.Err
}

// IsRetryablePartnerError reports whether the failure may succeed on a
// later attempt.
func IsRetryablePartnerError(err error) bool {
	var pErr *PartnerError
	if errors.As(err, &pErr) {
		return pErr.Kind == ErrKindTransport || pErr.Kind == ErrKindPartner
	}
	return false
}

// PartnerClient is the outbound surface to the credit-monitoring partner.
type PartnerClient interface {
	SubmitEnrollment(ctx context.Context, payload model.PartnerEnrollmentPayload) (*model.EnrollmentResult, error)
	FetchReport(ctx context.Context, memberID, reportID string) ([]byte, error)
}

type partnerClient struct {
	cfg     config.PartnerConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewPartnerClient builds the production client. Every call is capped by
// the configured timeout and goes through a circuit breaker so a partner
// outage sheds load fast instead of tying up workers.
func NewPartnerClient(cfg config.PartnerConfig) PartnerClient {
	return NewPartnerClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout()})
}

// NewPartnerClientWithHTTP injects the HTTP client, for tests.
func NewPartnerClientWithHTTP(cfg config.PartnerConfig, client *http.Client) PartnerClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "partner-api",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &partnerClient{cfg: cfg, client: client, breaker: breaker}
}

type partnerHTTPResponse struct {
	status int
	body   []byte
}

// do signs and sends one request. Transport faults, 5xx and an open breaker
// come back as PartnerError; any other response is returned for the caller
// to interpret.
func (c *partnerClient) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	sig := signature.Sign(body, timestamp, c.cfg.APISecret)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
		if err != nil {
			return nil, &PartnerError{Kind: ErrKindTransport, Message: "failed to build partner request", Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Partner-ID", c.cfg.PartnerID)
		req.Header.Set("X-API-Key", c.cfg.APIKey)
		req.Header.Set("X-Timestamp", timestamp)
		req.Header.Set("X-Signature", sig)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, &PartnerError{Kind: ErrKindTransport, Message: "partner request failed", Err: err}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &PartnerError{Kind: ErrKindTransport, Message: "failed to read partner response", Err: err}
		}
		if resp.StatusCode >= 500 {
			return nil, &PartnerError{Kind: ErrKindPartner, StatusCode: resp.StatusCode, Message: string(respBody)}
		}
		return &partnerHTTPResponse{status: resp.StatusCode, body: respBody}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, nil, &PartnerError{Kind: ErrKindTransport, Message: "partner circuit breaker open", Err: err}
		}
		return 0, nil, err
	}

	resp := result.(*partnerHTTPResponse)
	return resp.status, resp.body, nil
}

type partnerErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type partnerEnrollmentResponse struct {
	MemberID          string `json:"memberId"`
	EnrollmentID      string `json:"enrollmentId"`
	ReportAvailableAt string `json:"reportAvailableAt"`
}

// SubmitEnrollment posts the prepared payload to the partner and normalizes
// the outcome.
func (c *partnerClient) SubmitEnrollment(ctx context.Context, payload model.PartnerEnrollmentPayload) (*model.EnrollmentResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal enrollment payload")
	}

	status, respBody, err := c.do(ctx, http.MethodPost, "/v2/enrollments", body)
	if err != nil {
		return nil, err
	}

	if status >= 400 {
		var errBody partnerErrorBody
		message := string(respBody)
		if jsonErr := json.Unmarshal(respBody, &errBody); jsonErr == nil && errBody.Error.Message != "" {
			message = fmt.Sprintf("%s: %s", errBody.Error.Code, errBody.Error.Message)
		}
		return nil, &PartnerError{Kind: ErrKindRejection, StatusCode: status, Message: message}
	}

	var enrollResp partnerEnrollmentResponse
	if err := json.Unmarshal(respBody, &enrollResp); err != nil || enrollResp.MemberID == "" {
		return nil, &PartnerError{Kind: ErrKindPartner, StatusCode: status, Message: "malformed enrollment response", Err: err}
	}

	result := &model.EnrollmentResult{
		MemberID:          enrollResp.MemberID,
		EnrollmentID:      enrollResp.EnrollmentID,
		Username:          payload.Credentials.Username,
		TemporaryPassword: payload.Credentials.Password,
	}
	if enrollResp.ReportAvailableAt != "" {
		if at, parseErr := time.Parse(time.RFC3339, enrollResp.ReportAvailableAt); parseErr == nil {
			result.ReportAvailableAt = &at
		}
	}
	return result, nil
}

// FetchReport retrieves a report body verbatim; parsing is out of scope,
// the bytes are archived as delivered.
func (c *partnerClient) FetchReport(ctx context.Context, memberID, reportID string) ([]byte, error) {
	path := fmt.Sprintf("/v2/reports/%s?memberId=%s", reportID, memberID)
	status, respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	if status >= 400 {
		var errBody partnerErrorBody
		message := string(respBody)
		if jsonErr := json.Unmarshal(respBody, &errBody); jsonErr == nil && errBody.Error.Message != "" {
			message = fmt.Sprintf("%s: %s", errBody.Error.Code, errBody.Error.Message)
		}
		return nil, &PartnerError{Kind: ErrKindRejection, StatusCode: status, Message: message}
	}

	if len(respBody) == 0 || !json.Valid(respBody) {
		return nil, &PartnerError{Kind: ErrKindPartner, StatusCode: status, Message: "malformed report response"}
	}
	return respBody, nil
}

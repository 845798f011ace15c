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

package model

import "time"

// PartnerEnrollmentPayload is the wire body for POST /v2/enrollments. Field
// names follow the partner's API, not ours.
type PartnerEnrollmentPayload struct {
	FirstName    string              `json:"firstName"`
	MiddleName   string              `json:"middleName,omitempty"`
	LastName     string              `json:"lastName"`
	Suffix       string              `json:"suffix,omitempty"`
	Email        string              `json:"email"`
	Phone        string              `json:"phone,omitempty"`
	DateOfBirth  string              `json:"dateOfBirth"`
	SSN          string              `json:"ssn"`
	Address      PartnerAddress      `json:"address"`
	Credentials  PartnerCredentials  `json:"credentials"`
	Subscription PartnerSubscription `json:"subscription"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
}

// PartnerAddress mirrors Address in the partner's casing.
type PartnerAddress struct {
	Street  string `json:"street"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

// PartnerCredentials carries the generated portal account. SecretWord is the
// partner's account-recovery answer.
type PartnerCredentials struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	SecretWord string `json:"secretWord"`
}

// PartnerSubscription selects the product on the partner side.
type PartnerSubscription struct {
	ProductCode string `json:"productCode"`
	AutoRenew   bool   `json:"autoRenew"`
}

// EnrollmentResult is the normalized outcome of a successful partner
// enrollment call.
type EnrollmentResult struct {
	MemberID          string     `json:"member_id"`
	Username          string     `json:"username"`
	TemporaryPassword string     `json:"-"`
	EnrollmentID      string     `json:"enrollment_id"`
	ReportAvailableAt *time.Time `json:"report_available_at,omitempty"`
}

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

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/speedycredit/enrolld/model"
)

// CreateEnrollmentRequest is the intake body for POST /enrollment-requests.
// Contact data is checked in depth by the pipeline before the partner call;
// the API only rejects bodies that could never process.
type CreateEnrollmentRequest struct {
	ContactID        string                 `json:"contact_id"`
	ContactData      model.ContactData      `json:"contact_data"`
	SubscriptionType string                 `json:"subscription_type"`
	LeadScore        int                    `json:"lead_score"`
	LeadSource       string                 `json:"lead_source"`
	MetaData         map[string]interface{} `json:"meta_data"`
}

func (r *CreateEnrollmentRequest) ValidateCreateEnrollmentRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ContactID, validation.Required),
		validation.Field(&r.SubscriptionType, validation.Required),
		validation.Field(&r.LeadScore, validation.Min(0), validation.Max(10)),
	)
}

func (r *CreateEnrollmentRequest) ToEnrollmentRequest() model.EnrollmentRequest {
	return model.EnrollmentRequest{
		ContactID:        r.ContactID,
		ContactData:      r.ContactData,
		SubscriptionType: r.SubscriptionType,
		LeadScore:        r.LeadScore,
		LeadSource:       r.LeadSource,
		MetaData:         r.MetaData,
	}
}

// CreateContact is the body for POST /contacts.
type CreateContact struct {
	FirstName string                 `json:"first_name"`
	LastName  string                 `json:"last_name"`
	Email     string                 `json:"email"`
	MetaData  map[string]interface{} `json:"meta_data"`
}

func (r *CreateContact) ValidateCreateContact() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.LastName, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (r *CreateContact) ToContact() model.Contact {
	return model.Contact{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		MetaData:  r.MetaData,
	}
}

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
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/speedycredit/enrolld/model"
)

var nonDigits = regexp.MustCompile(`\D`)

var (
	zipPattern   = regexp.MustCompile(`^\d{5}(\d{4})?$`)
	statePattern = regexp.MustCompile(`^[A-Za-z]{2}$`)
	dobPattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// NormalizeContactData strips formatting from the numeric identity fields
// so downstream checks and the partner payload see digits only.
func NormalizeContactData(data *model.ContactData) {
	data.SSN = nonDigits.ReplaceAllString(data.SSN, "")
	data.SSNLast4 = nonDigits.ReplaceAllString(data.SSNLast4, "")
	data.Phone = nonDigits.ReplaceAllString(data.Phone, "")
	data.Address.Zip = strings.TrimSpace(data.Address.Zip)
	if data.SSNLast4 == "" && len(data.SSN) == 9 {
		data.SSNLast4 = data.SSN[5:]
	}
}

// ValidateContactData normalizes the record and checks every enrollment
// precondition. All violations are reported together, not just the first.
// It has no side effects beyond normalization.
func ValidateContactData(data *model.ContactData) error {
	NormalizeContactData(data)

	return validation.ValidateStruct(data,
		validation.Field(&data.FirstName, validation.Required),
		validation.Field(&data.LastName, validation.Required),
		validation.Field(&data.Email, validation.Required, is.Email),
		validation.Field(&data.DateOfBirth, validation.Required, validation.Match(dobPattern).Error("must be in YYYY-MM-DD format")),
		validation.Field(&data.SSN,
			validation.Required.When(data.SSNLast4 == "").Error("either ssn or ssn_last4 is required"),
			validation.When(data.SSN != "", validation.Length(9, 9), is.Digit)),
		validation.Field(&data.SSNLast4,
			validation.When(data.SSNLast4 != "", validation.Length(4, 4), is.Digit)),
		validation.Field(&data.Phone,
			validation.When(data.Phone != "", validation.Length(10, 11), is.Digit)),
		validation.Field(&data.Address, validation.By(func(interface{}) error {
			return validateAddress(data.Address)
		})),
	)
}

func validateAddress(addr model.Address) error {
	return validation.ValidateStruct(&addr,
		validation.Field(&addr.Street, validation.Required),
		validation.Field(&addr.City, validation.Required),
		validation.Field(&addr.State, validation.Required, validation.Match(statePattern).Error("must be a two-letter state code")),
		validation.Field(&addr.Zip, validation.Required, validation.Match(zipPattern).Error("must be a 5 or 9 digit zip code")),
	)
}

// ValidateSubscriptionType checks the requested plan exists.
func ValidateSubscriptionType(subscriptionType string) error {
	_, err := model.PlanFor(subscriptionType)
	return err
}

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
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a new UUID prefixed with the module name,
// e.g. "request_5f8e…". All record IDs in the system are produced this way.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

const tempPasswordChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%"

// GenerateUsername builds a partner portal username from the first three
// letters of the first and last names plus a random numeric suffix.
func GenerateUsername(firstName, lastName string) string {
	first := strings.ToLower(firstName)
	if len(first) > 3 {
		first = first[:3]
	}
	last := strings.ToLower(lastName)
	if len(last) > 3 {
		last = last[:3]
	}
	return fmt.Sprintf("%s%s%d", first, last, rand.Intn(10000))
}

// GenerateTempPassword returns a 12 character temporary password for a newly
// created partner account. The member is forced to reset it on first login.
func GenerateTempPassword() string {
	b := make([]byte, 12)
	for i := range b {
		b[i] = tempPasswordChars[rand.Intn(len(tempPasswordChars))]
	}
	return string(b)
}

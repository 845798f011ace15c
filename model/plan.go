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
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionPlan maps a plan name to the partner product and its billing
// terms.
type SubscriptionPlan struct {
	Name        string          `json:"name"`
	ProductCode string          `json:"product_code"`
	Price       decimal.Decimal `json:"price"`
	Duration    time.Duration   `json:"-"`
}

var plans = map[string]SubscriptionPlan{
	"trial": {
		Name:        "trial",
		ProductCode: "TRIAL_7DAY",
		Price:       decimal.Zero,
		Duration:    7 * 24 * time.Hour,
	},
	"basic": {
		Name:        "basic",
		ProductCode: "BASIC_MONTHLY",
		Price:       decimal.NewFromFloat(19.99),
		Duration:    30 * 24 * time.Hour,
	},
	"premium": {
		Name:        "premium",
		ProductCode: "PREMIUM_MONTHLY",
		Price:       decimal.NewFromFloat(39.99),
		Duration:    30 * 24 * time.Hour,
	},
}

// PlanFor resolves a subscription type to its plan.
func PlanFor(subscriptionType string) (SubscriptionPlan, error) {
	plan, ok := plans[subscriptionType]
	if !ok {
		return SubscriptionPlan{}, fmt.Errorf("unknown subscription type: %s", subscriptionType)
	}
	return plan, nil
}

// NextBillingDate returns when the plan renews if started at from.
func (p SubscriptionPlan) NextBillingDate(from time.Time) time.Time {
	return from.Add(p.Duration)
}

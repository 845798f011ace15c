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
	"fmt"

	"github.com/posthog/posthog-go"
	"github.com/redis/go-redis/v9"
	"github.com/speedycredit/enrolld/config"
	"github.com/speedycredit/enrolld/database"
	"github.com/speedycredit/enrolld/internal/blobstore"
	"github.com/speedycredit/enrolld/internal/cache"
	redis_db "github.com/speedycredit/enrolld/internal/redis-db"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("Enrollment pipeline")

// Enrolld is the enrollment orchestrator. It owns the queue, the partner
// client, the report blob store and the datasource, and every pipeline
// operation hangs off it.
type Enrolld struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
	partner    PartnerClient
	blob       blobstore.Store
	cache      cache.Cache
	analytics  posthog.Client
}

// NewEnrolld initializes the orchestrator with the provided datasource. The
// partner client, queue and blob store are built from the loaded
// configuration. Analytics is optional and nil when no PostHog key is
// configured.
func NewEnrolld(db database.IDataSource) (*Enrolld, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}

	newQueue := NewQueue(configuration)
	partner := NewPartnerClient(configuration.Partner)

	blob, err := blobstore.NewS3Store()
	if err != nil {
		return nil, err
	}

	lookupCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}

	var analytics posthog.Client
	if configuration.Analytics.PostHogAPIKey != "" {
		endpoint := configuration.Analytics.PostHogHost
		if endpoint == "" {
			endpoint = "https://app.posthog.com"
		}
		analytics, err = posthog.NewWithConfig(configuration.Analytics.PostHogAPIKey, posthog.Config{Endpoint: endpoint})
		if err != nil {
			return nil, err
		}
	}

	newEnrolld := &Enrolld{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		partner:    partner,
		blob:       blob,
		cache:      lookupCache,
		analytics:  analytics,
	}
	return newEnrolld, nil
}

// captureAnalytics fires a product analytics event when a PostHog client is
// configured. Failures are ignored; analytics never block the pipeline.
func (e *Enrolld) captureAnalytics(distinctID, event string, properties map[string]interface{}) {
	if e.analytics == nil {
		return
	}
	props := posthog.NewProperties()
	for k, v := range properties {
		props = props.Set(k, v)
	}
	_ = e.analytics.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: props,
	})
}

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

	"github.com/gin-gonic/gin"
	"github.com/speedycredit/enrolld/api/middleware"
	"github.com/speedycredit/enrolld/config"
	"github.com/speedycredit/enrolld/model"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// EnrollmentService is the orchestrator surface the HTTP layer depends on.
type EnrollmentService interface {
	RecordEnrollmentRequest(ctx context.Context, req model.EnrollmentRequest) (model.EnrollmentRequest, error)
	GetEnrollmentRequest(ctx context.Context, requestID string) (*model.EnrollmentRequest, error)
	GetEnrollment(ctx context.Context, enrollmentID string) (*model.Enrollment, error)
	GetActiveEnrollmentForContact(ctx context.Context, contactID string) (*model.Enrollment, error)
	CreateContact(ctx context.Context, contact model.Contact) (model.Contact, error)
	GetContact(ctx context.Context, contactID string) (*model.Contact, error)
	GetReportArtifacts(ctx context.Context, contactID string, limit int) ([]model.ReportArtifact, error)
	ProcessWebhookEvent(ctx context.Context, event model.WebhookEvent) error
}

type Api struct {
	service EnrollmentService
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/enrollment-requests", a.CreateEnrollmentRequest)
	router.GET("/enrollment-requests/:id", a.GetEnrollmentRequest)

	router.GET("/enrollments/:id", a.GetEnrollment)

	router.POST("/contacts", a.CreateContact)
	router.GET("/contacts/:id", a.GetContact)
	router.GET("/contacts/:id/enrollment", a.GetContactEnrollment)
	router.GET("/contacts/:id/reports", a.GetContactReports)

	router.POST("/webhooks/idiq", a.PartnerWebhook)
	return a.router
}

func NewAPI(service EnrollmentService) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.EnableTelemetry {
		r.Use(otelgin.Middleware(conf.ProjectName))
	}
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{service: service, router: r}
}

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
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/speedycredit/enrolld/config"
	redis_db "github.com/speedycredit/enrolld/internal/redis-db"
	"github.com/speedycredit/enrolld/model"
)

// Queue wraps the asynq client for the pipeline's queues: enrollment
// processing, deferred retries, scheduled report pulls and outbound
// notifications.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// ReportPullPayload is the body of a scheduled report-pull task.
type ReportPullPayload struct {
	MemberID  string `json:"member_id"`
	ContactID string `json:"contact_id"`
}

// NotificationPayload is the body of a queued notification task. Type
// selects the template downstream (welcome_credentials, renewal_followup,
// credit_alert).
type NotificationPayload struct {
	Type      string                 `json:"type"`
	ContactID string                 `json:"contact_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// Enqueue puts a fresh enrollment request on the processing queue. The task
// ID is the request ID, so re-submitting the same request is a no-op at the
// queue level.
func (q *Queue) Enqueue(ctx context.Context, req *model.EnrollmentRequest) error {
	ctx, span := tracer.Start(ctx, "Adding Enrollment Request To Redis Queue")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.TaskID(req.RequestID),
		asynq.Queue(cfg.Queue.EnrollmentQueue),
	}
	task := asynq.NewTask(cfg.Queue.EnrollmentQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued enrollment request: %+v", req.RequestID)

	return nil
}

// EnqueueRetry schedules the next attempt for a request that failed
// transiently. The task ID is requestID:retryCount so a crash between the
// status update and the enqueue cannot produce two live retry tasks for the
// same attempt, and ProcessIn applies the exponential backoff (5, 15, 45
// minutes).
func (q *Queue) EnqueueRetry(ctx context.Context, requestID string, retryCount int) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(requestID)
	if err != nil {
		return err
	}

	delay := model.RetryDelay(retryCount - 1)
	taskOptions := []asynq.Option{
		asynq.TaskID(fmt.Sprintf("%s:%d", requestID, retryCount)),
		asynq.Queue(cfg.Queue.EnrollmentQueue),
		asynq.ProcessIn(delay),
	}
	task := asynq.NewTask(cfg.Queue.EnrollmentQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued retry %d for request %s in %s", retryCount, requestID, delay)
	return nil
}

// QueueReportPull schedules a report fetch for a member, normally 24 hours
// after enrollment. The member-scoped task ID collapses duplicate
// schedules.
func (q *Queue) QueueReportPull(ctx context.Context, memberID, contactID string, processAt time.Time) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(ReportPullPayload{MemberID: memberID, ContactID: contactID})
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.TaskID(fmt.Sprintf("report_pull:%s", memberID)),
		asynq.Queue(cfg.Queue.ReportPullQueue),
		asynq.ProcessIn(time.Until(processAt)),
	}
	task := asynq.NewTask(cfg.Queue.ReportPullQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued report pull for member: %s", memberID)
	return nil
}

// QueueNotification fires a notification task. Fire-and-forget: the caller
// does not wait for delivery.
func (q *Queue) QueueNotification(ctx context.Context, notification NotificationPayload) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{asynq.Queue(cfg.Queue.NotificationQueue)}
	task := asynq.NewTask(cfg.Queue.NotificationQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued %s notification for contact: %s", notification.Type, notification.ContactID)
	return nil
}

// GetEnrollmentRequestFromQueue retrieves a pending request task by its ID,
// for operator inspection.
func (q *Queue) GetEnrollmentRequestFromQueue(requestID string) (*model.EnrollmentRequest, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	task, err := q.Inspector.GetTaskInfo(cfg.Queue.EnrollmentQueue, requestID)
	if err == nil && task != nil {
		var req model.EnrollmentRequest
		if err := json.Unmarshal(task.Payload, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}
	return nil, nil
}

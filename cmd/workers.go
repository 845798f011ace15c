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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"
	"go.opentelemetry.io/otel"

	enrolld "github.com/speedycredit/enrolld"
	"github.com/speedycredit/enrolld/config"
	redlock "github.com/speedycredit/enrolld/internal/lock"
	redis_db "github.com/speedycredit/enrolld/internal/redis-db"
	"github.com/speedycredit/enrolld/internal/request"
	"github.com/speedycredit/enrolld/model"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
)

const (
	sweepInterval = time.Hour
	sweepLockTTL  = 10 * time.Minute
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

// processEnrollment consumes enrollment tasks. First-attempt tasks carry the
// full request, retry tasks carry only the request ID; the claim inside
// ProcessEnrollmentRequest makes duplicate deliveries no-ops either way.
func (e *enrolldInstance) processEnrollment(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("enrolld.enrollment.worker").Start(ctx, "Process Enrollment Request From Redis Queue")
	defer span.End()

	var requestID string
	var req model.EnrollmentRequest
	if err := json.Unmarshal(t.Payload(), &req); err == nil && req.RequestID != "" {
		requestID = req.RequestID
	} else if err := json.Unmarshal(t.Payload(), &requestID); err != nil {
		logrus.Error(err)
		return err
	}

	if err := e.service.ProcessEnrollmentRequest(ctx, requestID); err != nil {
		logrus.Infof("Enrollment request %s pushed back for retry due to error: %v", requestID, err)
		return err
	}

	log.Println(" [*] Enrollment Request Processed", requestID)
	return nil
}

// processReportPull consumes scheduled report-pull tasks.
func (e *enrolldInstance) processReportPull(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("enrolld.reports.worker").Start(ctx, "Process Report Pull From Redis Queue")
	defer span.End()

	var payload enrolld.ReportPullPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	if err := e.service.PullMemberReport(ctx, payload); err != nil {
		return err
	}

	log.Println(" [*] Report Pulled For Member", payload.MemberID)
	return nil
}

// processNotification delivers queued notifications. Delivery goes to the
// configured Slack webhook; the CRM owns customer-facing channels.
func (e *enrolldInstance) processNotification(_ context.Context, t *asynq.Task) error {
	var payload enrolld.NotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	if e.cnf.Notification.Slack.WebhookUrl == "" {
		log.Printf(" [*] Notification %s for contact %s (no delivery channel configured)", payload.Type, payload.ContactID)
		return nil
	}

	message := json.RawMessage(fmt.Sprintf(`{"text": "enrolld notification %q for contact %s"}`, payload.Type, payload.ContactID))
	body, err := request.ToJsonReq(&message)
	if err != nil {
		return err
	}
	req, err := http.NewRequest("POST", e.cnf.Notification.Slack.WebhookUrl, body)
	if err != nil {
		return err
	}
	var response map[string]interface{}
	if _, err := request.Call(req, &response); err != nil {
		return err
	}

	log.Printf(" [*] Notification %s delivered for contact %s", payload.Type, payload.ContactID)
	return nil
}

// runSweepLoop periodically re-enqueues stalled enrollment requests. A Redis
// lock keeps the sweep single-flight across worker replicas.
func runSweepLoop(ctx context.Context, e *enrolldInstance) {
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", e.cnf.Redis.Dns)}, e.cnf.Redis.SkipTLSVerify)
	if err != nil {
		log.Printf("Sweep disabled, redis connection failed: %v", err)
		return
	}

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			locker := redlock.NewLocker(redisClient.Client(), "enrolld:sweep:stalled-requests")
			if err := locker.Lock(ctx, sweepLockTTL); err != nil {
				logrus.Infof("Sweep skipped, another worker holds the lock: %v", err)
				continue
			}
			if err := e.service.SweepStalledRequests(ctx); err != nil {
				logrus.Errorf("Sweep failed: %v", err)
			}
			if err := locker.Unlock(ctx); err != nil {
				logrus.Errorf("Failed to release sweep lock: %v", err)
			}
		}
	}
}

func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	queues := make(map[string]int)
	queues[cfg.Queue.EnrollmentQueue] = 3
	queues[cfg.Queue.ReportPullQueue] = 2
	queues[cfg.Queue.NotificationQueue] = 1
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(e *enrolldInstance, mux *asynq.ServeMux) {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return
	}

	mux.HandleFunc(cfg.Queue.EnrollmentQueue, e.processEnrollment)
	mux.HandleFunc(cfg.Queue.ReportPullQueue, e.processReportPull)
	mux.HandleFunc(cfg.Queue.NotificationQueue, e.processNotification)
}

// workerCommands defines the "workers" command that consumes the enrollment,
// report-pull and notification queues.
func workerCommands(e *enrolldInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start enrolld workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			phClient, shutdown, err := initializeObservability(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			if shutdown != nil {
				defer func() {
					if err := shutdown(ctx); err != nil {
						log.Printf("Error during shutdown: %v", err)
					}
				}()
			}
			if phClient != nil {
				defer phClient.Close()
			}

			queues := initializeQueues()

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(e, mux)

			go runSweepLoop(ctx, e)

			// Start asynqmon server for health checks and monitoring
			redisOption, _ := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
			h := asynqmon.New(asynqmon.Options{
				RootPath: "/monitoring",
				RedisConnOpt: asynq.RedisClientOpt{
					Addr:      redisOption.Addr,
					Password:  redisOption.Password,
					DB:        redisOption.DB,
					TLSConfig: redisOption.TLSConfig,
				},
			})

			go func() {
				monitoringAddr := ":5402"
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}

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

package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/speedycredit/enrolld/config"
	"github.com/speedycredit/enrolld/internal/cache"
)

// Singleton connection shared across the process.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, Cache: nil}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the enrolld schema and tables. Statements are idempotent
// so it is safe to run on every boot.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS enrolld`); err != nil {
		return err
	}
	if err := createContactTable(db); err != nil {
		return err
	}
	if err := createEnrollmentRequestTable(db); err != nil {
		return err
	}
	if err := createEnrollmentTable(db); err != nil {
		return err
	}
	if err := createReportArtifactTable(db); err != nil {
		return err
	}
	return nil
}

func createContactTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS enrolld.contacts (
			id SERIAL PRIMARY KEY,
			contact_id TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL,
			member_id TEXT,
			enrollment_id TEXT,
			idiq_status TEXT,
			workflow_stage TEXT,
			workflow_next_action TEXT,
			workflow_error TEXT,
			workflow_last_action TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			meta_data JSONB
		)
	`)
	if err != nil {
		log.Printf("Error creating contacts table: %v", err)
	}
	return err
}

func createEnrollmentRequestTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS enrolld.enrollment_requests (
			id SERIAL PRIMARY KEY,
			request_id TEXT NOT NULL UNIQUE,
			contact_id TEXT NOT NULL,
			contact_data JSONB NOT NULL,
			subscription_type TEXT NOT NULL,
			lead_score INT NOT NULL DEFAULT 0,
			lead_source TEXT,
			status TEXT NOT NULL DEFAULT 'queued',
			retry_count INT NOT NULL DEFAULT 0,
			error TEXT,
			meta_data JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			claimed_at TIMESTAMP,
			processed_at TIMESTAMP
		)
	`)
	if err != nil {
		log.Printf("Error creating enrollment_requests table: %v", err)
	}
	return err
}

func createEnrollmentTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS enrolld.enrollments (
			id SERIAL PRIMARY KEY,
			enrollment_id TEXT NOT NULL UNIQUE,
			contact_id TEXT NOT NULL,
			member_id TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL,
			credentials_hash TEXT,
			subscription_type TEXT NOT NULL,
			product_code TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			report_count BIGINT NOT NULL DEFAULT 0,
			last_report_id TEXT,
			last_report_url TEXT,
			last_report_pull TIMESTAMP,
			next_billing_date TIMESTAMP,
			monitoring_active BOOLEAN NOT NULL DEFAULT TRUE,
			meta_data JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			expired_at TIMESTAMP
		)
	`)
	if err != nil {
		log.Printf("Error creating enrollments table: %v", err)
		return err
	}
	// One active enrollment per contact, enforced here rather than by
	// read-then-write checks in the application.
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_enrollments_one_active_per_contact
		ON enrolld.enrollments (contact_id)
		WHERE status = 'active'
	`)
	if err != nil {
		log.Printf("Error creating active enrollment index: %v", err)
	}
	return err
}

func createReportArtifactTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS enrolld.report_artifacts (
			id SERIAL PRIMARY KEY,
			artifact_id TEXT NOT NULL UNIQUE,
			contact_id TEXT NOT NULL,
			report_id TEXT NOT NULL,
			member_id TEXT NOT NULL,
			storage_key TEXT NOT NULL,
			signed_url TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			fetched_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (contact_id, report_id)
		)
	`)
	if err != nil {
		log.Printf("Error creating report_artifacts table: %v", err)
	}
	return err
}

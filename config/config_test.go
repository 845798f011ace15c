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

package config

import (
	"encoding/json"
	"os"
	"testing"
)

func validBase() Configuration {
	return Configuration{
		ProjectName: "Test Project",
		DataSource:  DataSourceConfig{Dns: "postgres://localhost:5432"},
		Redis:       RedisConfig{Dns: "localhost:6379"},
		Partner:     PartnerConfig{BaseURL: "https://api.partner.test"},
	}
}

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := validBase()
	cnf.DataSource.Dns = ""
	if err := cnf.validateAndAddDefaults(); err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = validBase()
	cnf.Redis.Dns = ""
	if err := cnf.validateAndAddDefaults(); err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	cnf = validBase()
	cnf.Partner.BaseURL = ""
	if err := cnf.validateAndAddDefaults(); err == nil || err.Error() != "partner base URL is required" {
		t.Errorf("Expected partner base URL required error, got %v", err)
	}

	cnf = validBase()
	if err := cnf.validateAndAddDefaults(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if cnf.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected default port %s, got %s", DEFAULT_PORT, cnf.Server.Port)
	}
	if cnf.Partner.TimeoutSec != DEFAULT_PARTNER_TIMEOUT_SEC {
		t.Errorf("Expected default partner timeout, got %d", cnf.Partner.TimeoutSec)
	}
	if cnf.Storage.SignedURLHours != DEFAULT_SIGNED_URL_EXPIRY_HOURS {
		t.Errorf("Expected default signed URL expiry, got %d", cnf.Storage.SignedURLHours)
	}
	if cnf.Queue.EnrollmentQueue != "new:enrollment" {
		t.Errorf("Expected default enrollment queue name, got %s", cnf.Queue.EnrollmentQueue)
	}
}

func TestValidateTrimsPartnerBaseURL(t *testing.T) {
	cnf := validBase()
	cnf.Partner.BaseURL = " https://api.partner.test/ "
	if err := cnf.validateAndAddDefaults(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cnf.Partner.BaseURL != "https://api.partner.test" {
		t.Errorf("Expected trimmed base URL, got %q", cnf.Partner.BaseURL)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "enrolld.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := validBase()
	sampleConfig.ProjectName = "Temp Project"
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	// Environment overrides the file
	os.Setenv("ENROLLD_PROJECT_NAME", "Env Project")
	defer os.Unsetenv("ENROLLD_PROJECT_NAME")

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile failed: %v", err)
	}

	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if loadedConfig.ProjectName != "Env Project" {
		t.Errorf("Expected ProjectName to be 'Env Project', got '%s'", loadedConfig.ProjectName)
	}
	if loadedConfig.DataSource.Dns != "postgres://localhost:5432" {
		t.Errorf("Expected DataSource.Dns from file, got '%s'", loadedConfig.DataSource.Dns)
	}
}

func TestInitConfig(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "enrolld.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := validBase()
	sampleConfig.ProjectName = "InitConfig Test"
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	if err := InitConfig(tmpFile.Name()); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if loadedConfig.ProjectName != "InitConfig Test" {
		t.Errorf("Expected ProjectName to be 'InitConfig Test', got '%s'", loadedConfig.ProjectName)
	}
}

func TestSetGrafanaExporterEnvs(t *testing.T) {
	mockConfig := Configuration{
		OtelGrafanaCloud: OtelGrafanaCloud{
			OtelExporterOtlpProtocol: "http/protobuf",
			OtelExporterOtlpEndpoint: "localhost:4317",
			OtelExporterOtlpHeaders:  "api-key=12345",
		},
	}
	ConfigStore.Store(&mockConfig)

	if err := SetGrafanaExporterEnvs(); err != nil {
		t.Fatalf("SetGrafanaExporterEnvs failed: %v", err)
	}

	if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") != "http/protobuf" {
		t.Errorf("Expected OTEL_EXPORTER_OTLP_PROTOCOL to be 'http/protobuf', got '%s'", os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"))
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "localhost:4317" {
		t.Errorf("Expected OTEL_EXPORTER_OTLP_ENDPOINT to be 'localhost:4317', got '%s'", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_HEADERS") != "api-key=12345" {
		t.Errorf("Expected OTEL_EXPORTER_OTLP_HEADERS to be 'api-key=12345', got '%s'", os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	}
}

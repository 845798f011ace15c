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
	"context"

	"github.com/speedycredit/enrolld/internal/apierror"
	"github.com/speedycredit/enrolld/model"
)

// InsertReportArtifact writes the artifact row. The (contact_id, report_id)
// unique constraint plus ON CONFLICT DO NOTHING makes redelivered webhooks
// a no-op: the bool tells the caller whether this call was the first
// delivery and may run the counter increment.
func (d Datasource) InsertReportArtifact(ctx context.Context, artifact model.ReportArtifact) (bool, error) {
	if artifact.ArtifactID == "" {
		artifact.ArtifactID = model.GenerateUUIDWithSuffix("artifact")
	}

	result, err := d.Conn.ExecContext(ctx, `
		INSERT INTO enrolld.report_artifacts (artifact_id, contact_id, report_id, member_id, storage_key, signed_url, expires_at, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (contact_id, report_id) DO NOTHING
	`, artifact.ArtifactID, artifact.ContactID, artifact.ReportID, artifact.MemberID,
		artifact.StorageKey, artifact.SignedURL, artifact.ExpiresAt, artifact.FetchedAt)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to insert report artifact", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check report artifact insert", err)
	}
	return rows == 1, nil
}

func (d Datasource) GetReportArtifacts(ctx context.Context, contactID string, limit int) ([]model.ReportArtifact, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT artifact_id, contact_id, report_id, member_id, storage_key, signed_url, expires_at, fetched_at
		FROM enrolld.report_artifacts
		WHERE contact_id = $1
		ORDER BY fetched_at DESC
		LIMIT $2
	`, contactID, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve report artifacts", err)
	}
	defer rows.Close()

	artifacts := []model.ReportArtifact{}
	for rows.Next() {
		artifact := model.ReportArtifact{}
		err = rows.Scan(&artifact.ArtifactID, &artifact.ContactID, &artifact.ReportID, &artifact.MemberID,
			&artifact.StorageKey, &artifact.SignedURL, &artifact.ExpiresAt, &artifact.FetchedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan report artifact", err)
		}
		artifacts = append(artifacts, artifact)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over report artifacts", err)
	}
	return artifacts, nil
}

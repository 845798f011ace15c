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

// Package blobstore archives raw credit reports to S3 and mints signed
// download URLs for them.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/speedycredit/enrolld/config"
)

// Store is the blob interface the report persister depends on.
type Store interface {
	Put(ctx context.Context, key string, body []byte) error
	SignedURL(key string, expiry time.Duration) (string, error)
}

// ReportKey builds the storage key for a fetched report. The timestamp keeps
// re-pulled reports from overwriting earlier copies.
func ReportKey(contactID, reportID string, fetchedAt time.Time) string {
	return fmt.Sprintf("credit-reports/%s/%s_%d.json", contactID, reportID, fetchedAt.Unix())
}

// S3Store is the S3 implementation of Store.
type S3Store struct {
	client *s3.S3
	bucket string
}

// NewS3Store builds a store from the loaded configuration.
func NewS3Store() (*S3Store, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	return NewS3StoreWithConfig(cnf.Storage)
}

// NewS3StoreWithConfig builds a store from explicit storage settings. A
// non-empty endpoint switches to path-style addressing for S3-compatible
// stores.
func NewS3StoreWithConfig(cnf config.StorageConfig) (*S3Store, error) {
	awsCfg := aws.NewConfig().WithRegion(cnf.S3Region)
	if cnf.AwsAccessKeyId != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cnf.AwsAccessKeyId, cnf.AwsSecretAccessKey, ""))
	}
	if cnf.S3Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cnf.S3Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, err
	}

	return &S3Store{
		client: s3.New(sess),
		bucket: cnf.S3BucketName,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	return err
}

// SignedURL returns a presigned GET URL for a stored object. Signing is
// local; no request is made.
func (s *S3Store) SignedURL(key string, expiry time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return req.Presign(expiry)
}

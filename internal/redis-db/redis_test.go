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

package redis_db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected *redis.Options
		wantErr  bool
	}{
		{
			name:     "simple docker style",
			url:      "redis:6379",
			expected: &redis.Options{Addr: "redis:6379"},
		},
		{
			name: "redis url with password",
			url:  "redis://:password123@localhost:6379",
			expected: &redis.Options{
				Addr:     "localhost:6379",
				Password: "password123",
			},
		},
		{
			name: "redis url password without colon",
			url:  "redis://password123@localhost:6379",
			expected: &redis.Options{
				Addr:     "localhost:6379",
				Password: "password123",
			},
		},
		{
			name:    "garbage url",
			url:     "http://not@a@redis//url:x",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedisURL(tt.url, false)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected.Addr, got.Addr)
			assert.Equal(t, tt.expected.Password, got.Password)
		})
	}
}

func TestNewRedisClientEmptyAddresses(t *testing.T) {
	_, err := NewRedisClient([]string{}, false)
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewRedisClient([]string{mr.Addr()}, false)
	require.NoError(t, err)
	assert.NotNil(t, client.Client())
	assert.NotNil(t, client.MakeRedisClient())

	ctx := context.Background()
	require.NoError(t, client.Client().Set(ctx, "enrolld:test", "ok", 0).Err())
	got, err := client.Client().Get(ctx, "enrolld:test").Result()
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

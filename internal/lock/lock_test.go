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

package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (redis.UniversalClient, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func TestLocker_Lock(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	locker := NewLocker(client, "sweep-lock")
	assert.NoError(t, locker.Lock(ctx, 5*time.Second))

	// A second process cannot take the same lock while it is held.
	other := NewLocker(client, "sweep-lock")
	err := other.Lock(ctx, 5*time.Second)
	assert.EqualError(t, err, "lock for key sweep-lock is already held")
}

func TestLocker_Unlock(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	locker := NewLocker(client, "sweep-lock")
	require.NoError(t, locker.Lock(ctx, 5*time.Second))
	assert.NoError(t, locker.Unlock(ctx))

	// Freed lock is available again.
	other := NewLocker(client, "sweep-lock")
	assert.NoError(t, other.Lock(ctx, 5*time.Second))
}

func TestLocker_UnlockNotHolder(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	holder := NewLocker(client, "sweep-lock")
	require.NoError(t, holder.Lock(ctx, 5*time.Second))

	other := NewLocker(client, "sweep-lock")
	err := other.Unlock(ctx)
	assert.EqualError(t, err, "unlock failed, either lock expired or you're not the lock holder for key sweep-lock")
}

func TestLocker_ExtendLock(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	locker := NewLocker(client, "sweep-lock")
	require.NoError(t, locker.Lock(ctx, 1*time.Second))
	assert.NoError(t, locker.ExtendLock(ctx, 10*time.Second))

	// Past the original TTL the extended lock is still held.
	mr.FastForward(2 * time.Second)
	other := NewLocker(client, "sweep-lock")
	assert.Error(t, other.Lock(ctx, 5*time.Second))
}

func TestLocker_ExtendLockExpired(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	locker := NewLocker(client, "sweep-lock")
	require.NoError(t, locker.Lock(ctx, 1*time.Second))
	mr.FastForward(2 * time.Second)

	err := locker.ExtendLock(ctx, 5*time.Second)
	assert.EqualError(t, err, "lock extension failed for key sweep-lock, either lock expired or you're not the holder")
}

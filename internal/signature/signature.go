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

// Package signature implements the request-signing scheme shared with the
// credit-monitoring partner: hex SHA-256 over payload || timestamp || secret.
// The same scheme signs our outbound API calls and authenticates their
// inbound webhooks.
package signature

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// DefaultMaxSkew is how far a webhook timestamp may drift from our clock in
// either direction before we reject it.
const DefaultMaxSkew = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing signature")
	ErrMissingTimestamp = errors.New("missing timestamp")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrStaleTimestamp   = errors.New("timestamp outside allowed window")
	ErrMismatch         = errors.New("signature mismatch")
)

// Sign computes the signature for a payload at the given unix-seconds
// timestamp.
func Sign(payload []byte, timestamp, secret string) string {
	h := sha256.New()
	h.Write(payload)
	h.Write([]byte(timestamp))
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify authenticates an inbound payload. It fails closed: a missing or
// malformed timestamp, a timestamp more than maxSkew from now, a missing
// signature, or a mismatch all return a non-nil error, and the caller must
// not act on the payload. The comparison is constant time.
func Verify(payload []byte, timestamp, sig, secret string, maxSkew time.Duration) error {
	if sig == "" {
		return ErrMissingSignature
	}
	if timestamp == "" {
		return ErrMissingTimestamp
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	skew := time.Since(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxSkew {
		return ErrStaleTimestamp
	}
	expected := Sign(payload, timestamp, secret)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) != 1 {
		return ErrMismatch
	}
	return nil
}

// HashSecret returns the hex SHA-256 of a secret, used to store credential
// digests at rest.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

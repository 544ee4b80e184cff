// Copyright 2026 The ChronicleHub Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// KeyTag prefixes every ChronicleHub API key.
	KeyTag = "chk_"

	// KeyPrefixLength is the length of the clear lookup prefix, tag included.
	KeyPrefixLength = 12
)

// NewToken generates an opaque token: 32 bytes from crypto/rand,
// base64url-encoded without padding.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DigestToken returns the SHA-256 digest of a raw token, base64url-encoded.
// Refresh tokens are persisted and looked up only by this digest.
func DigestToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// NewAPIKey generates a plaintext API key of the form chk_xxxxxxxx.secret.
// It returns the full plaintext, the clear prefix used as the lookup index,
// and the secret part that is only ever stored hashed.
func NewAPIKey() (string, string, string, error) {
	pb := make([]byte, 4)
	if _, err := rand.Read(pb); err != nil {
		return "", "", "", fmt.Errorf("failed to generate key prefix: %w", err)
	}

	sb := make([]byte, 32)
	if _, err := rand.Read(sb); err != nil {
		return "", "", "", fmt.Errorf("failed to generate key secret: %w", err)
	}

	prefix := KeyTag + hex.EncodeToString(pb)
	secret := base64.RawURLEncoding.EncodeToString(sb)
	return prefix + "." + secret, prefix, secret, nil
}

// SplitKey splits a presented API key into its prefix and secret parts.
// ok is false when the value does not have the chk_xxxxxxxx.secret shape.
func SplitKey(plaintext string) (prefix, secret string, ok bool) {
	prefix, secret, found := strings.Cut(plaintext, ".")
	if !found || secret == "" {
		return "", "", false
	}
	if len(prefix) != KeyPrefixLength || !strings.HasPrefix(prefix, KeyTag) {
		return "", "", false
	}
	return prefix, secret, true
}

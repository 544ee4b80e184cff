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

package apikey

import "errors"

var (
	// ErrKeyMalformed rejects values that do not match the key wire format.
	ErrKeyMalformed = errors.New("api key is malformed")

	// ErrKeyNotFound covers both an unknown prefix and a wrong secret, so
	// a caller cannot probe which half failed.
	ErrKeyNotFound = errors.New("api key not found")

	ErrKeyExpired = errors.New("api key has expired")
	ErrKeyRevoked = errors.New("api key has been revoked")
)

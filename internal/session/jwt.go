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

package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/id"
)

// signAccessToken mints a short-lived HS256 access token for a user.
func (s *Service) signAccessToken(userID string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": userID,
		"jti": id.NewUUIDv7(),
		"iat": now.Unix(),
		"exp": now.Add(s.accessTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingSecret)
}

// VerifyAccessToken checks a presented access token and returns its subject.
// Signature and issuer must match; the signing method is pinned to HS256.
func (s *Service) VerifyAccessToken(raw string) (string, error) {
	parsed, err := jwt.Parse(raw,
		func(t *jwt.Token) (any, error) { return s.signingSecret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrAccessTokenExpired
		}
		return "", ErrAccessTokenInvalid
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrAccessTokenInvalid
	}
	return sub, nil
}

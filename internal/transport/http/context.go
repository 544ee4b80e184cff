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

package http

import (
	"context"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/auth"
)

type contextKey string

const identityKey contextKey = "identity"

func withIdentity(ctx context.Context, ident *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// GetIdentity retrieves the authenticated identity from context. It is nil
// on requests that did not pass the authentication middleware.
func GetIdentity(ctx context.Context) *auth.Identity {
	if ident, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return ident
	}
	return nil
}

// GetUserID retrieves the authenticated user ID from context. API key
// callers have no user, so this is empty for them.
func GetUserID(ctx context.Context) string {
	if ident := GetIdentity(ctx); ident != nil {
		return ident.UserID
	}
	return ""
}

// GetTenantID retrieves the tenant scope of the authenticated identity.
func GetTenantID(ctx context.Context) string {
	if ident := GetIdentity(ctx); ident != nil {
		return ident.TenantID
	}
	return ""
}

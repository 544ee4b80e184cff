//go:build tools

package tools

// Pins the swag generator used to produce the OpenAPI document from the
// handler annotations (swag init -g cmd/server/main.go).
import (
	_ "github.com/swaggo/swag"
)

// Package handlers provides HTTP request handlers for the widget API.
// This file re-exports handler constructors from subpackages.
package handlers

import (
	"github.com/meagent/meagent_service/internal/api/handlers/common"
	"github.com/meagent/meagent_service/internal/api/handlers/widget"
)

// Re-export types from subpackages
type (
	WidgetHandlers = widget.WidgetHandlers
	HealthHandler  = common.HealthHandler
	HealthCheck    = common.HealthCheck
)

// Re-export constructors from subpackages
var (
	NewWidgetHandlers = widget.NewWidgetHandlers
	NewHealthHandler  = common.NewHealthHandler
)

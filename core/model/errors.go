package model

import "errors"

// Sentinel errors shared across the core. Callers match them with errors.Is
// and translate them to their own failure signals (HTTP status codes, CLI
// exit messages). Storage failures are wrapped by the component that hit
// them and are never one of these values.
var (
	ErrCartNotFound   = errors.New("cart not found")
	ErrReportNotFound = errors.New("location report not found")
	ErrInvalidInput   = errors.New("invalid input")
)

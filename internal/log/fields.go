// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldTaskID    = "task_id"
	FieldIdentity  = "identity"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"
	FieldPID       = "pid"
	FieldExitCode  = "exit_code"

	// Media fields
	FieldURL      = "url"
	FieldTitle    = "title"
	FieldTier     = "tier"
	FieldDuration = "duration_s"
	FieldBitrate  = "bitrate_kbps"
	FieldBytes    = "bytes"
	FieldBudget   = "budget_bytes"

	// Error fields
	FieldErrorKind = "error_kind"
)

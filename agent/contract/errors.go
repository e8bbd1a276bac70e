package contract

import "errors"

var (
	ErrModelInvoke        = errors.New("model invoke failed")
	ErrSchemaViolation    = errors.New("model response violates schema")
	ErrPromptMissing      = errors.New("required prompt is missing")
	ErrValidation         = errors.New("validation failed")
	ErrUnknownTool        = errors.New("unknown tool requested")
	ErrToolRoundsExceeded = errors.New("tool round limit exceeded")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrOrderRejected      = errors.New("order rejected")
)

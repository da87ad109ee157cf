package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	// ErrSynthesisFormat marks one generation attempt whose output held no
	// decodable tool specification. It is retried, never surfaced alone.
	ErrSynthesisFormat    = errors.New("synthesized tool is malformed")
	ErrSynthesisExhausted = errors.New("tool synthesis attempts exhausted")

	ErrUnsafeCode = errors.New("synthesized code rejected by safety filter")
	ErrExecution  = errors.New("synthesized code failed to execute")

	ErrProductNotFound = errors.New("product not found")
	ErrToolNotFound    = errors.New("tool not registered")
	ErrEmbedding       = errors.New("embedding failed")

	// ErrInternal marks a broken invariant inside a pipeline, as opposed to
	// bad caller input.
	ErrInternal = errors.New("internal pipeline error")
)

// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are the stable, machine-readable part of the error envelope. Each one
// belongs to a taxonomy kind (the envelope's "error" field) that clients of
// the bridge branch on: InvalidInput, NotFound, ChatUnavailable, PostFailed.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "error": "ChatUnavailable",
//	  "code": "chat_unavailable",
//	  "message": "video has no active live chat"
//	}
package handlers

const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeInvalidInput      = "invalid_input"
	ErrCodeNotFound          = "not_found"
	ErrCodeMethodNotAllowed  = "method_not_allowed"
	ErrCodeBadIdempotencyKey = "bad_idempotency_key"
	ErrCodeInternal          = "internal_error"
	ErrCodeUnavailable       = "service_unavailable"

	// Domain-specific:
	ErrCodeChatUnavailable = "chat_unavailable"
	ErrCodePostFailed      = "post_failed"
	ErrCodeCreateFailed    = "create_failed"
	ErrCodeListFailed      = "list_failed"
)

// Taxonomy kinds reported in the envelope's "error" field.
const (
	KindInvalidInput     = "InvalidInput"
	KindNotFound         = "NotFound"
	KindChatUnavailable  = "ChatUnavailable"
	KindPostFailed       = "PostFailed"
	KindMethodNotAllowed = "MethodNotAllowed"
	KindUnavailable      = "Unavailable"
	KindInternal         = "Internal"
)

var kindByCode = map[string]string{
	ErrCodeBadRequest:        KindInvalidInput,
	ErrCodeInvalidInput:      KindInvalidInput,
	ErrCodeBadIdempotencyKey: KindInvalidInput,
	ErrCodeNotFound:          KindNotFound,
	ErrCodeMethodNotAllowed:  KindMethodNotAllowed,
	ErrCodeChatUnavailable:   KindChatUnavailable,
	ErrCodePostFailed:        KindPostFailed,
	ErrCodeUnavailable:       KindUnavailable,
}

// kindOf maps a code to its taxonomy kind; unknown codes are Internal.
func kindOf(code string) string {
	if k, ok := kindByCode[code]; ok {
		return k
	}
	return KindInternal
}

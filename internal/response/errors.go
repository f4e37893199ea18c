package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound     ErrCode = "NOT_FOUND"
	ErrExamNotFound ErrCode = "EXAM_NOT_FOUND"

	// ─── Catalog ───────────────────────────────────────────────────────
	ErrNoExamData     ErrCode = "NO_EXAM_DATA"
	ErrCatalogInvalid ErrCode = "CATALOG_INVALID"
	ErrFileTooLarge   ErrCode = "FILE_TOO_LARGE"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid id format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrExamNotFound:
		return "No exam with this id exists in the loaded catalog."

	// ─── Catalog ───────────────────────────────────────────────────────
	case ErrNoExamData:
		return "No exam data is loaded. Import an exams.json file first."
	case ErrCatalogInvalid:
		return "Invalid exams file: expected a top-level \"exams\" array of exam definitions."
	case ErrFileTooLarge:
		return "The uploaded file exceeds the size limit."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}

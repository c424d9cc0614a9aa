// internal/api/error_codes.go
package api

// API error code constants
const (
	// Generic
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"

	// Generation pipeline
	ErrorConfigMissing         = "CONFIG_ERROR"
	ErrorValidation            = "VALIDATION_ERROR"
	ErrorOutlineParseFailed    = "PARSE_ERROR"
	ErrorUpstreamFailed        = "UPSTREAM_ERROR"
	ErrorCredentialsExhausted  = "ALL_CREDENTIALS_EXHAUSTED"
	ErrorImageUnavailable      = "IMAGE_UNAVAILABLE"
	ErrorGenerationInProgress  = "GENERATION_IN_PROGRESS"
	ErrorUnsavedSettings       = "UNSAVED_SETTINGS"

	// Project document
	ErrorProjectNotFound = "PROJECT_NOT_FOUND"
	ErrorSceneNotFound   = "SCENE_NOT_FOUND"
	ErrorVariantInvalid  = "VARIANT_INVALID"

	// Archive
	ErrorInvalidArchive   = "INVALID_ARCHIVE"
	ErrorExportFailed     = "EXPORT_FAILED"
	ErrorFileUploadFailed = "FILE_UPLOAD_FAILED"

	// Progress
	ErrorRunNotFound = "RUN_NOT_FOUND"
)

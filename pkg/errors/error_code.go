package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown  ErrorCode = 1
	ErrCodeCanceled ErrorCode = 2
	ErrCodeDisposed ErrorCode = 3

	// Validation / input errors (100-199)
	ErrCodeInvalidParameter      ErrorCode = 100
	ErrCodeMissingRequiredFields ErrorCode = 101
	ErrCodeInvalidEnum           ErrorCode = 102
	ErrCodeInvalidNumber         ErrorCode = 103
	ErrCodeInvalidDate           ErrorCode = 104
	ErrCodeInvalidTrade          ErrorCode = 105
	ErrCodeTradeNotFound         ErrorCode = 106
	ErrCodeDuplicateTrade        ErrorCode = 107

	// Calculation errors (200-299)
	ErrCodeMissingInput         ErrorCode = 200
	ErrCodeInvalidDirection     ErrorCode = 201
	ErrCodeInvalidStopPlacement ErrorCode = 202
	ErrCodeNonPositiveInput     ErrorCode = 203

	// Persistence errors (300-399)
	ErrCodeBackendUnavailable ErrorCode = 300
	ErrCodeUniqueViolation    ErrorCode = 301
	ErrCodeNumericOutOfRange  ErrorCode = 302
	ErrCodeInvalidEnumValue   ErrorCode = 303
	ErrCodeQueryFailed        ErrorCode = 304
	ErrCodeSchemaMismatch     ErrorCode = 305

	// Import errors (400-499)
	ErrCodeImportNoUser        ErrorCode = 400
	ErrCodeImportEmptyInput    ErrorCode = 401
	ErrCodeImportNotFound      ErrorCode = 402
	ErrCodeImportNotCancelable ErrorCode = 403
	ErrCodeImportChunkFailed   ErrorCode = 404

	// Cache errors (500-599)
	ErrCodeCacheDisabled ErrorCode = 500
	ErrCodeCacheDisposed ErrorCode = 501

	// Configuration errors (600-699)
	ErrCodeInvalidConfiguration ErrorCode = 600
	ErrCodeConfigNotFound       ErrorCode = 601
	ErrCodeVersionMismatch      ErrorCode = 602
)

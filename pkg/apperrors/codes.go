package apperrors

// ErrorCode - машиночитаемый код, клиент получает его в поле "code"
type ErrorCode string

// Общие коды
const (
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeAlreadyExists        ErrorCode = "ALREADY_EXISTS"
	CodeConflict             ErrorCode = "CONFLICT"
	CodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	CodeInvalidStatus        ErrorCode = "INVALID_STATUS"
	CodeInvalidOperation     ErrorCode = "INVALID_OPERATION"
	CodeTooManyRequests      ErrorCode = "TOO_MANY_REQUESTS"
)

// Доступ
const (
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	CodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	CodeAccountSuspended   ErrorCode = "ACCOUNT_SUSPENDED"
	CodeSelfModification   ErrorCode = "SELF_MODIFICATION"
)

// Тарифы, планы питания, фото
const (
	CodeLimitExceeded        ErrorCode = "LIMIT_EXCEEDED"
	CodeFileTooLarge         ErrorCode = "FILE_TOO_LARGE"
	CodeUnsupportedMediaType ErrorCode = "UNSUPPORTED_MEDIA_TYPE"
)

package apperrors

import (
	"net/http"
)

// Фабрики для ошибок, пришедших из репозиториев

// ErrNotFound - 404 с исходной ошибкой внутри
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrInvalidStatus - переход статуса запрещён (409)
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusConflict)
}

// --- Auth & Users ---

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrTokenExpired = New(
	CodeTokenExpired,
	"auth",
	"Token has expired",
	http.StatusUnauthorized,
)

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already in use",
	http.StatusConflict,
)

var ErrWeakPassword = New(
	CodeValidationFailed,
	"validation",
	"Password is too weak. Minimum 8 characters required.",
	http.StatusBadRequest,
)

var ErrUserSuspended = New(
	CodeAccountSuspended,
	"auth",
	"Your account has been suspended",
	http.StatusForbidden,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// ErrCannotModifySelf - админ пытается удалить себя или снять с себя роль admin
var ErrCannotModifySelf = New(
	CodeSelfModification,
	"user",
	"Operation on self is not allowed",
	http.StatusForbidden,
)

var ErrUserNotFound = New(
	CodeNotFound,
	"user",
	"User not found",
	http.StatusNotFound,
)

var ErrUnknownRole = New(
	CodeValidationFailed,
	"user",
	"Unknown role",
	http.StatusBadRequest,
)

// --- Subscription plans & subscriptions ---

var ErrPlanNotFound = New(
	CodeNotFound,
	"subscription",
	"Subscription plan not found",
	http.StatusNotFound,
)

var ErrPlanInactive = New(
	CodeInvalidOperation,
	"subscription",
	"Subscription plan is not available",
	http.StatusBadRequest,
)

var ErrPlanNameTaken = New(
	CodeAlreadyExists,
	"subscription",
	"Plan with this name already exists",
	http.StatusConflict,
)

var ErrSubscriptionNotFound = New(
	CodeNotFound,
	"subscription",
	"Subscription not found",
	http.StatusNotFound,
)

var ErrNoActiveSubscription = New(
	CodeNotFound,
	"subscription",
	"No active subscription",
	http.StatusNotFound,
)

var ErrSubscriptionPendingExists = New(
	CodeConflict,
	"subscription",
	"A pending request for this plan already exists",
	http.StatusConflict,
)

var ErrSubscriptionNotPending = New(
	CodeInvalidStatus,
	"subscription",
	"Only pending subscriptions can be approved or rejected",
	http.StatusConflict,
)

var ErrSubscriptionCancelled = New(
	CodeInvalidStatus,
	"subscription",
	"Subscription cannot be cancelled in its current status",
	http.StatusConflict,
)

// --- Nutrition plans ---

var ErrNutritionPlanNotFound = New(
	CodeNotFound,
	"nutrition",
	"Nutrition plan not found",
	http.StatusNotFound,
)

var ErrNutritionPlanDateTaken = New(
	CodeAlreadyExists,
	"nutrition",
	"Nutrition plan for this date already exists",
	http.StatusConflict,
)

// ErrNutritionPlanLimit - исчерпан месячный лимит планов по подписке
var ErrNutritionPlanLimit = New(
	CodeLimitExceeded,
	"nutrition",
	"Monthly nutrition plan limit for your subscription has been reached",
	http.StatusForbidden,
)

// --- Chat ---

var ErrChatSessionNotFound = New(
	CodeNotFound,
	"chat",
	"Chat session not found",
	http.StatusNotFound,
)

var ErrChatSessionAccessDenied = New(
	CodeForbidden,
	"chat",
	"Access to chat session denied",
	http.StatusForbidden,
)

// --- Providers ---

var ErrProviderNotFound = New(
	CodeNotFound,
	"provider",
	"Service provider not found",
	http.StatusNotFound,
)

// --- Photos ---

var ErrPhotoNotFound = New(
	CodeNotFound,
	"photo",
	"Photo not found",
	http.StatusNotFound,
)

var ErrFileTooLarge = New(
	CodeFileTooLarge,
	"validation",
	"File size exceeds the allowed limit",
	http.StatusRequestEntityTooLarge,
)

var ErrInvalidFileType = New(
	CodeUnsupportedMediaType,
	"validation",
	"The provided file type is not allowed",
	http.StatusUnsupportedMediaType,
)

var ErrTooManyRequests = New(
	CodeTooManyRequests,
	"request",
	"Too many requests",
	http.StatusTooManyRequests,
)

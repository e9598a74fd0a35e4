package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrValidation  = &AppError{Code: "VALID_001", Message: "required field missing"}
	ErrInvalidEnum = &AppError{Code: "VALID_002", Message: "value not in allowed set"}

	ErrMedicationNotFound   = &AppError{Code: "MED_001", Message: "medication not found"}
	ErrMedicationReferenced = &AppError{Code: "MED_002", Message: "medication is referenced by dose log or reminders"}

	ErrNoData = &AppError{Code: "DATA_001", Message: "no data in the selected window"}

	ErrSessionNotFound = &AppError{Code: "SESSION_001", Message: "session not found or expired"}
	ErrSessionLimit    = &AppError{Code: "SESSION_002", Message: "session limit reached"}

	ErrDroneBusy = &AppError{Code: "DRONE_001", Message: "drone already in transit"}
	ErrDroneIdle = &AppError{Code: "DRONE_002", Message: "no delivery in progress"}

	ErrAssetUnavailable = &AppError{Code: "ASSET_001", Message: "asset unavailable"}

	ErrUnauthorized = &AppError{Code: "AUTH_001", Message: "unauthorized"}

	ErrNotFound   = &AppError{Code: "GEN_001", Message: "resource not found"}
	ErrBadRequest = &AppError{Code: "GEN_002", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_003", Message: "internal error"}
)

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Detail keeps the sentinel's code but swaps in a more specific message.
// The sentinel stays reachable through errors.Is.
func Detail(base *AppError, message string) *AppError {
	return &AppError{
		Code:    base.Code,
		Message: message,
		Cause:   base,
	}
}

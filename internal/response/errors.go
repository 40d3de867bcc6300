package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// Authentication
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// Authorization
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// Validation
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// Resources
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// Contest-specific
	ErrContestNotAvailable ErrCode = "CONTEST_NOT_AVAILABLE"
	ErrInvalidEntryToken   ErrCode = "INVALID_ENTRY_TOKEN"
	ErrContestNotPublished ErrCode = "CONTEST_NOT_PUBLISHED"
	ErrContestNotDraft     ErrCode = "CONTEST_NOT_DRAFT"
	ErrNoQuestions         ErrCode = "NO_QUESTIONS"
	ErrNoActiveSession     ErrCode = "NO_ACTIVE_SESSION"
	ErrSessionCompleted    ErrCode = "SESSION_COMPLETED"

	// Server
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrSessionActive:
		return "You are already signed in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrActionForbidden:
		return "This action is not allowed."

	case ErrContestNotAvailable:
		return "This contest is not currently available."
	case ErrInvalidEntryToken:
		return "The contest entry token is invalid."
	case ErrContestNotPublished:
		return "This contest has not been published."
	case ErrContestNotDraft:
		return "This contest is not in DRAFT status."
	case ErrNoQuestions:
		return "This contest has no questions."
	case ErrNoActiveSession:
		return "You have no active session for this contest."
	case ErrSessionCompleted:
		return "Your session for this contest is already completed."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}

package oauth

import "errors"

// Machine-readable error codes surfaced to the error redirect URL.
const (
	CodeStateMismatch     = "state_mismatch"
	CodeFlowExpired       = "please_restart_the_process"
	CodeExchangeFailed    = "code_exchange_failed"
	CodeUserInfoFailed    = "unable_to_get_user_info"
	CodeEmailNotVerified  = "email_not_verified"
	CodeAlreadyLinked     = "account_already_linked"
	CodeProviderError     = "provider_error"
	CodeSignUpUnavailable = "unable_to_create_user"
)

var (
	ErrUnknownProvider   = errors.New("oauth: unknown provider")
	ErrDuplicateProvider = errors.New("oauth: provider registered twice")
	ErrInvalidCode       = errors.New("oauth: invalid authorization code")
	ErrNoEmail           = errors.New("oauth: provider returned no email")
)

// FlowError is a failed flow outcome. RedirectTo is the flow's vetted
// error URL when one could be recovered from the state; empty otherwise.
type FlowError struct {
	Code       string
	RedirectTo string
	cause      error
}

func (e *FlowError) Error() string {
	if e.cause != nil {
		return "oauth flow failed: " + e.Code + ": " + e.cause.Error()
	}
	return "oauth flow failed: " + e.Code
}

func (e *FlowError) Unwrap() error {
	return e.cause
}

func flowErr(code, redirectTo string, cause error) *FlowError {
	return &FlowError{Code: code, RedirectTo: redirectTo, cause: cause}
}

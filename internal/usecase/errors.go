package usecase

import (
	"errors"
)

const (
	CodeTenantNotConfigured = "TENANT_NOT_CONFIGURED"
	CodeTenantMisconfigured = "TENANT_MISCONFIGURED"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeStorageFailure      = "STORAGE_FAILURE"
	CodeWebhookRegistration = "WEBHOOK_REGISTRATION_FAILED"
)

// DomainError é um problema de configuração/setup, exposto ao chamador com código.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError encapsula falhas de storage ou do provider.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

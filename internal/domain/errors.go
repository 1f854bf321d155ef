package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound                 = errors.New("recurso no encontrado")
	ErrInvalidInput             = errors.New("entrada inválida")
	ErrUnauthorized             = errors.New("no autorizado")
	ErrForbidden                = errors.New("acceso denegado")
	ErrConflict                 = errors.New("conflicto con el estado actual")
	ErrCredentialsNotConfigured = errors.New("credenciales SUNAT no configuradas para el ambiente")
	ErrMissingPayload           = fmt.Errorf("%w: la transmisión no tiene payload almacenado", ErrInvalidInput)
	ErrInvalidTransition        = errors.New("transición de estado no permitida")
)

// Etiquetas de la taxonomía de errores expuestas a los clientes.
const (
	TagValidation         = "VALIDATION"
	TagSigning            = "SIGNING"
	TagBlockedDestination = "BLOCKED_DESTINATION"
	TagTransmission       = "TRANSMISSION"
	TagReceiptParse       = "RECEIPT_PARSE"
	TagCredentials        = "CREDENTIALS"
	TagPermission         = "FORBIDDEN"
	TagBadRequest         = "BAD_REQUEST"
	TagConflict           = "CONFLICT"
	TagNotFound           = "NOT_FOUND"
	TagInternal           = "INTERNAL"
)

// ValidationError documento mal formado o incompleto. Se rechaza antes de firmar
// y nunca genera una transmisión persistida.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "validación: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }
func (e *ValidationError) Tag() string   { return TagValidation }

// NewValidationError envuelve err (o un mensaje) como ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

// SigningError llave o certificado ilegible, o placeholder de firma ausente.
type SigningError struct {
	Reason string
	Err    error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return "firma: " + e.Reason + ": " + e.Err.Error()
	}
	return "firma: " + e.Reason
}
func (e *SigningError) Unwrap() error { return e.Err }
func (e *SigningError) Tag() string   { return TagSigning }

// BlockedDestinationError el destino resuelve a una dirección privada, loopback o link-local.
type BlockedDestinationError struct {
	Host string
	IP   string
}

func (e *BlockedDestinationError) Error() string {
	return fmt.Sprintf("destino bloqueado: %s resuelve a %s", e.Host, e.IP)
}
func (e *BlockedDestinationError) Tag() string { return TagBlockedDestination }

// TransmissionError falla de red, respuesta no-2xx o SOAP Fault.
// Body conserva la respuesta cruda (si existe) para diagnóstico.
type TransmissionError struct {
	Op         string
	StatusCode int
	FaultCode  string
	Body       []byte
	Err        error
}

func (e *TransmissionError) Error() string {
	msg := "transmisión " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.FaultCode != "" {
		msg += " [" + e.FaultCode + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}
func (e *TransmissionError) Unwrap() error { return e.Err }
func (e *TransmissionError) Tag() string   { return TagTransmission }

// ReceiptParseError CDR ilegible. Nunca se propaga al llamador: el parser degrada
// a un Receipt no aceptado y este error solo se registra.
type ReceiptParseError struct {
	Stage string
	Err   error
}

func (e *ReceiptParseError) Error() string {
	return "cdr " + e.Stage + ": " + e.Err.Error()
}
func (e *ReceiptParseError) Unwrap() error { return e.Err }
func (e *ReceiptParseError) Tag() string   { return TagReceiptParse }

// CredentialsError no hay credenciales SUNAT para (empresa, ambiente).
type CredentialsError struct {
	CompanyID   string
	Environment string
	Err         error
}

func (e *CredentialsError) Error() string {
	msg := fmt.Sprintf("credenciales de la empresa %s para %s", e.CompanyID, e.Environment)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}
func (e *CredentialsError) Unwrap() error { return e.Err }
func (e *CredentialsError) Tag() string   { return TagCredentials }

// Tagged errores que exponen la etiqueta de la taxonomía.
type Tagged interface {
	error
	Tag() string
}

// TagOf devuelve la etiqueta de taxonomía de err (INTERNAL si no es reconocido).
func TagOf(err error) string {
	var t Tagged
	if errors.As(err, &t) {
		return t.Tag()
	}
	switch {
	case errors.Is(err, ErrMissingPayload), errors.Is(err, ErrInvalidInput):
		return TagBadRequest
	case errors.Is(err, ErrForbidden):
		return TagPermission
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidTransition):
		return TagConflict
	case errors.Is(err, ErrNotFound):
		return TagNotFound
	case errors.Is(err, ErrCredentialsNotConfigured):
		return TagCredentials
	}
	return TagInternal
}

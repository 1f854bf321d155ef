package entity

import "time"

// Environment ambiente SUNAT.
type Environment string

const (
	EnvironmentBeta Environment = "BETA"
	EnvironmentProd Environment = "PROD"
)

// ParseEnvironment normaliza "beta"/"prod" (y alias "test"/"production").
func ParseEnvironment(s string) (Environment, bool) {
	switch s {
	case "BETA", "beta", "Beta", "test", "TEST":
		return EnvironmentBeta, true
	case "PROD", "prod", "Prod", "production", "PRODUCTION":
		return EnvironmentProd, true
	}
	return "", false
}

// TransmissionStatus estado del ciclo de vida de una transmisión.
type TransmissionStatus string

// Estados de la transmisión.
//
//	PENDING → SENDING → SENT | FAILED
//	FAILED  → RETRYING → SENDING
//
// PENDING y RETRYING pasan directo a FAILED cuando el armado local (XML, firma, ZIP)
// falla antes de llegar al Transmitter.
const (
	TransmissionPending  TransmissionStatus = "PENDING"
	TransmissionSending  TransmissionStatus = "SENDING"
	TransmissionSent     TransmissionStatus = "SENT"
	TransmissionFailed   TransmissionStatus = "FAILED"
	TransmissionRetrying TransmissionStatus = "RETRYING"
)

var transmissionTransitions = map[TransmissionStatus][]TransmissionStatus{
	TransmissionPending:  {TransmissionSending, TransmissionFailed},
	TransmissionSending:  {TransmissionSent, TransmissionFailed},
	TransmissionFailed:   {TransmissionRetrying},
	TransmissionRetrying: {TransmissionSending, TransmissionFailed},
}

// CanTransition indica si from → to es una mutación legal.
func CanTransition(from, to TransmissionStatus) bool {
	for _, s := range transmissionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal SENT y FAILED cierran el intento actual.
func (s TransmissionStatus) IsTerminal() bool {
	return s == TransmissionSent || s == TransmissionFailed
}

// TransmissionRecord unidad de trabajo persistida por intento de envío.
type TransmissionRecord struct {
	ID             string
	CompanyID      string
	OrganizationID string
	Environment    Environment
	DocumentType   string // "01", "03", "07", "09"
	Series         string
	Correlative    string
	Status         TransmissionStatus
	Payload        []byte // DocumentRequest serializado, requerido para reintentos
	ZipFilePath    string
	Response       *string // Receipt serializado (JSON)
	ErrorMessage   *string
	Attempts       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TransitionPatch campos que acompañan una transición de estado.
// Los nil no modifican la columna, salvo ErrorMessage que siempre se escribe.
type TransitionPatch struct {
	ZipFilePath  *string
	Response     *string
	ErrorMessage *string
}

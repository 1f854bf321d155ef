package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// TransmissionID presente cuando el intento quedó registrado en FAILED.
	TransmissionID string `json:"transmissionRecordId,omitempty"`
}

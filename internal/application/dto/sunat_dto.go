package dto

import (
	"encoding/json"
	"time"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
)

// SendDocumentRequest cuerpo de POST /api/sunat/documents.
type SendDocumentRequest struct {
	// Environment "BETA" o "PROD"; vacío usa el preferido de la empresa.
	Environment string               `json:"environment"`
	Document    domsunat.RawDocument `json:"document"`
}

// BatchSendRequest cuerpo de POST /api/sunat/documents/batch.
type BatchSendRequest struct {
	Environment string                 `json:"environment"`
	Documents   []domsunat.RawDocument `json:"documents"`
}

// TransmissionResponse vista pública de una transmisión. El payload no se expone.
type TransmissionResponse struct {
	ID             string                    `json:"id"`
	CompanyID      string                    `json:"companyId"`
	OrganizationID string                    `json:"organizationId,omitempty"`
	Environment    entity.Environment        `json:"environment"`
	DocumentType   string                    `json:"documentType"`
	Series         string                    `json:"series"`
	Correlative    string                    `json:"correlative"`
	Status         entity.TransmissionStatus `json:"status"`
	ZipFilePath    string                    `json:"zipFilePath,omitempty"`
	Receipt        *entity.Receipt           `json:"receipt,omitempty"`
	ErrorMessage   string                    `json:"errorMessage,omitempty"`
	Attempts       int                       `json:"attempts"`
	CreatedAt      time.Time                 `json:"createdAt"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

// NewTransmissionResponse arma la respuesta desde el registro persistido.
func NewTransmissionResponse(rec *entity.TransmissionRecord) TransmissionResponse {
	out := TransmissionResponse{
		ID:             rec.ID,
		CompanyID:      rec.CompanyID,
		OrganizationID: rec.OrganizationID,
		Environment:    rec.Environment,
		DocumentType:   rec.DocumentType,
		Series:         rec.Series,
		Correlative:    rec.Correlative,
		Status:         rec.Status,
		ZipFilePath:    rec.ZipFilePath,
		Attempts:       rec.Attempts,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
	if rec.ErrorMessage != nil {
		out.ErrorMessage = *rec.ErrorMessage
	}
	if rec.Response != nil {
		var r entity.Receipt
		if err := json.Unmarshal([]byte(*rec.Response), &r); err == nil {
			out.Receipt = &r
		}
	}
	return out
}

package entity

import "time"

// TransmissionEvent resultado de un intento de envío, publicado tras cada estado terminal.
type TransmissionEvent struct {
	TransmissionID string             `json:"transmission_id"`
	CompanyID      string             `json:"company_id"`
	OrganizationID string             `json:"organization_id,omitempty"`
	Environment    Environment        `json:"environment"`
	DocumentType   string             `json:"document_type"`
	Series         string             `json:"series"`
	Correlative    string             `json:"correlative"`
	Status         TransmissionStatus `json:"status"`
	Accepted       bool               `json:"accepted"`
	ResponseCode   string             `json:"response_code,omitempty"`
	Description    string             `json:"description,omitempty"`
	Attempts       int                `json:"attempts"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

package entity

// UnknownReceiptValue valor por defecto cuando el CDR no trae código o descripción.
const UnknownReceiptValue = "unknown"

// Receipt resultado interpretado del CDR (Constancia de Recepción).
type Receipt struct {
	Accepted    bool     `json:"accepted"`
	Code        string   `json:"code"`
	Description string   `json:"description"`
	ReferenceID string   `json:"referenceId,omitempty"`
	Notes       []string `json:"notes,omitempty"`
	Raw         string   `json:"raw,omitempty"` // applicationResponse en base64
}

// UnknownReceipt receipt no aceptado con valores por defecto.
func UnknownReceipt() Receipt {
	return Receipt{Accepted: false, Code: UnknownReceiptValue, Description: UnknownReceiptValue}
}

// Protocol variante de transmisión.
type Protocol string

const (
	ProtocolSOAP Protocol = "SOAP"
	ProtocolREST Protocol = "REST"
)

// RawResponse respuesta cruda del Transmitter.
type RawResponse struct {
	Protocol            Protocol
	StatusCode          int
	Body                []byte
	ApplicationResponse string // ZIP del CDR en base64, si ya fue extraído
	Ticket              string // numTicket de la API REST (envío asíncrono)
}

// SignedDocument XML firmado, inmutable una vez producido.
type SignedDocument struct {
	XML      []byte
	FileStem string // {ruc}-{tipo}-{serie}-{correlativo}
}

// ArchiveEntry ZIP con exactamente una entrada (el SignedDocument).
type ArchiveEntry struct {
	FileName  string // {stem}.zip
	EntryName string // {stem}.xml
	Content   []byte
}

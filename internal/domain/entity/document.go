package entity

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// DocumentKind tipo lógico del comprobante.
type DocumentKind string

const (
	KindInvoice           DocumentKind = "INVOICE"
	KindSimplifiedReceipt DocumentKind = "SIMPLIFIED_RECEIPT"
	KindCreditNote        DocumentKind = "CREDIT_NOTE"
	KindDispatchAdvice    DocumentKind = "DISPATCH_ADVICE"
)

// TypeCode devuelve el código del catálogo 01 SUNAT ("01", "03", "07", "09").
func (k DocumentKind) TypeCode() string {
	switch k {
	case KindInvoice:
		return "01"
	case KindSimplifiedReceipt:
		return "03"
	case KindCreditNote:
		return "07"
	case KindDispatchAdvice:
		return "09"
	}
	return ""
}

// KindFromTypeCode resuelve el DocumentKind a partir del código o del nombre.
func KindFromTypeCode(code string) (DocumentKind, bool) {
	switch code {
	case "01", string(KindInvoice):
		return KindInvoice, true
	case "03", string(KindSimplifiedReceipt):
		return KindSimplifiedReceipt, true
	case "07", string(KindCreditNote):
		return KindCreditNote, true
	case "09", string(KindDispatchAdvice):
		return KindDispatchAdvice, true
	}
	return "", false
}

// DocumentRequest comprobante normalizado, entrada del pipeline desde el Builder.
// Body es una unión cerrada: Invoice, SimplifiedReceipt, CreditNote o DispatchAdvice.
type DocumentRequest struct {
	Series      string
	Correlative string
	IssueDate   string // 2006-01-02
	IssueTime   string // 15:04:05
	Currency    string // ISO 4217
	Supplier    Supplier
	Body        DocumentBody
}

// Kind tipo del comprobante, derivado de la variante de Body.
func (d *DocumentRequest) Kind() DocumentKind {
	if d == nil || d.Body == nil {
		return ""
	}
	return d.Body.Kind()
}

// ID identificador serie-correlativo ("F001-123").
func (d *DocumentRequest) ID() string {
	return d.Series + "-" + d.Correlative
}

// DocumentBody variante del comprobante. El método no exportado cierra la unión.
type DocumentBody interface {
	Kind() DocumentKind
	documentBody()
}

// Supplier emisor del comprobante.
type Supplier struct {
	RUC       string  `json:"ruc"`
	LegalName string  `json:"legalName"`
	TradeName string  `json:"tradeName,omitempty"`
	Address   Address `json:"address"`
}

// Address dirección con ubigeo INEI.
type Address struct {
	Ubigeo     string `json:"ubigeo,omitempty"`
	Line       string `json:"line,omitempty"`
	District   string `json:"district,omitempty"`
	Province   string `json:"province,omitempty"`
	Department string `json:"department,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Party cliente o destinatario identificado por tipo (catálogo 06) y número.
type Party struct {
	DocType   string  `json:"docType"`
	DocNumber string  `json:"docNumber"`
	LegalName string  `json:"legalName"`
	Address   Address `json:"address,omitempty"`
}

// LineItem línea con montos ya resueltos (redondeados a 2 decimales).
type LineItem struct {
	Description     string          `json:"description"`
	Code            string          `json:"code,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitCode        string          `json:"unitCode"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	AffectationCode string          `json:"affectationCode"`
}

// Totals totales del comprobante.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Invoice factura (01).
type Invoice struct {
	Customer    Party      `json:"customer"`
	Lines       []LineItem `json:"lines"`
	Totals      Totals     `json:"totals"`
	PaymentForm string     `json:"paymentForm,omitempty"` // Contado | Credito
}

// SimplifiedReceipt boleta de venta (03).
type SimplifiedReceipt struct {
	Customer Party      `json:"customer"`
	Lines    []LineItem `json:"lines"`
	Totals   Totals     `json:"totals"`
}

// DocumentReference referencia a otro comprobante (serie-correlativo).
type DocumentReference struct {
	DocumentTypeCode string `json:"documentTypeCode"`
	Series           string `json:"series"`
	Correlative      string `json:"correlative"`
	IssuerRUC        string `json:"issuerRuc,omitempty"`
}

// ID serie-correlativo del documento referido.
func (r DocumentReference) ID() string {
	return r.Series + "-" + r.Correlative
}

// IsZero true si la referencia no fue informada.
func (r DocumentReference) IsZero() bool {
	return r.Series == "" && r.Correlative == ""
}

// DiscrepancyReason motivo de la nota (catálogo 09).
type DiscrepancyReason struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// CreditNote nota de crédito (07). Reference apunta al comprobante afectado.
type CreditNote struct {
	Customer  Party             `json:"customer"`
	Lines     []LineItem        `json:"lines"`
	Totals    Totals            `json:"totals"`
	Reference DocumentReference `json:"reference"`
	Reason    DiscrepancyReason `json:"reason"`
}

// Carrier transportista (modalidad pública) o conductor y vehículo (modalidad privada).
type Carrier struct {
	DocType         string `json:"docType,omitempty"`
	DocNumber       string `json:"docNumber,omitempty"`
	LegalName       string `json:"legalName,omitempty"`
	MTCRegistration string `json:"mtcRegistration,omitempty"`
	DriverDocType   string `json:"driverDocType,omitempty"`
	DriverDocNumber string `json:"driverDocNumber,omitempty"`
	DriverName      string `json:"driverName,omitempty"`
	DriverLicense   string `json:"driverLicense,omitempty"`
	VehiclePlate    string `json:"vehiclePlate,omitempty"`
}

// Shipment datos del traslado.
type Shipment struct {
	TransferReasonCode string          `json:"transferReasonCode"`
	TransferReason     string          `json:"transferReason,omitempty"`
	TransportModeCode  string          `json:"transportModeCode"`
	GrossWeight        decimal.Decimal `json:"grossWeight"`
	WeightUnitCode     string          `json:"weightUnitCode"`
	StartDate          string          `json:"startDate"`
	Origin             Address         `json:"origin"`
	Destination        Address         `json:"destination"`
}

// DispatchItem bien trasladado.
type DispatchItem struct {
	Description string          `json:"description"`
	Code        string          `json:"code,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCode    string          `json:"unitCode"`
}

// DispatchAdvice guía de remisión remitente (09). No lleva totales monetarios.
type DispatchAdvice struct {
	Consignee       Party             `json:"consignee"`
	Carrier         Carrier           `json:"carrier"`
	Shipment        Shipment          `json:"shipment"`
	Items           []DispatchItem    `json:"items"`
	RelatedDocument DocumentReference `json:"relatedDocument"`
	Note            string            `json:"note,omitempty"`
}

func (Invoice) Kind() DocumentKind           { return KindInvoice }
func (SimplifiedReceipt) Kind() DocumentKind { return KindSimplifiedReceipt }
func (CreditNote) Kind() DocumentKind        { return KindCreditNote }
func (DispatchAdvice) Kind() DocumentKind    { return KindDispatchAdvice }

func (Invoice) documentBody()           {}
func (SimplifiedReceipt) documentBody() {}
func (CreditNote) documentBody()        {}
func (DispatchAdvice) documentBody()    {}

// documentEnvelope forma JSON persistida en TransmissionRecord.Payload.
type documentEnvelope struct {
	Kind        DocumentKind    `json:"kind"`
	Series      string          `json:"series"`
	Correlative string          `json:"correlative"`
	IssueDate   string          `json:"issueDate"`
	IssueTime   string          `json:"issueTime"`
	Currency    string          `json:"currency"`
	Supplier    Supplier        `json:"supplier"`
	Body        json.RawMessage `json:"body"`
}

// MarshalJSON serializa el comprobante con la variante etiquetada por "kind".
func (d DocumentRequest) MarshalJSON() ([]byte, error) {
	if d.Body == nil {
		return nil, fmt.Errorf("documento sin cuerpo")
	}
	body, err := json.Marshal(d.Body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(documentEnvelope{
		Kind:        d.Body.Kind(),
		Series:      d.Series,
		Correlative: d.Correlative,
		IssueDate:   d.IssueDate,
		IssueTime:   d.IssueTime,
		Currency:    d.Currency,
		Supplier:    d.Supplier,
		Body:        body,
	})
}

// UnmarshalJSON reconstruye la variante según "kind".
func (d *DocumentRequest) UnmarshalJSON(data []byte) error {
	var env documentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	var body DocumentBody
	switch env.Kind {
	case KindInvoice:
		var b Invoice
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return err
		}
		body = b
	case KindSimplifiedReceipt:
		var b SimplifiedReceipt
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return err
		}
		body = b
	case KindCreditNote:
		var b CreditNote
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return err
		}
		body = b
	case KindDispatchAdvice:
		var b DispatchAdvice
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return err
		}
		body = b
	default:
		return fmt.Errorf("tipo de documento desconocido %q", env.Kind)
	}
	*d = DocumentRequest{
		Series:      env.Series,
		Correlative: env.Correlative,
		IssueDate:   env.IssueDate,
		IssueTime:   env.IssueTime,
		Currency:    env.Currency,
		Supplier:    env.Supplier,
		Body:        body,
	}
	return nil
}

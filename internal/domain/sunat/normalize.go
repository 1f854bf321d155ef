// Package sunat contiene la normalización y validación de dominio de comprobantes
// electrónicos SUNAT. Usa los catálogos de pkg/sunat.
package sunat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// DefaultIGVRate tasa de IGV vigente (porcentaje).
var DefaultIGVRate = decimal.NewFromInt(18)

var hundred = decimal.NewFromInt(100)

// limaZone zona horaria de emisión; si el sistema no tiene tzdata se usa UTC-5 fijo.
var limaZone = func() *time.Location {
	if loc, err := time.LoadLocation("America/Lima"); err == nil {
		return loc
	}
	return time.FixedZone("PET", -5*60*60)
}()

// thousandsGrouped montos con coma de miles y parte decimal con punto.
var thousandsGrouped = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+\.\d+$`)

// Amount monto que acepta número JSON, string ("100.50") o null/"" como ausente.
type Amount struct {
	Value decimal.Decimal
	Set   bool
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*a = Amount{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*a = Amount{}
			return nil
		}
		if strings.Contains(raw, ",") {
			// Solo "1,250.50": la coma decimal ("100,50") es ambigua.
			if !thousandsGrouped.MatchString(raw) {
				return fmt.Errorf("monto inválido %q: use punto decimal", raw)
			}
			raw = strings.ReplaceAll(raw, ",", "")
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("monto inválido %q", raw)
		}
		*a = Amount{Value: d, Set: true}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("monto inválido %s", s)
	}
	*a = Amount{Value: d, Set: true}
	return nil
}

// NewAmount construye un Amount informado (útil en tests y en la CLI).
func NewAmount(v string) Amount {
	return Amount{Value: decimal.RequireFromString(v), Set: true}
}

// FlexString string que también acepta números JSON (ej. correlativo 123).
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// RawDocument entrada con tipado laxo, tal como la envía el flujo de ventas o despacho.
type RawDocument struct {
	DocumentKind string       `json:"documentKind"`
	Series       FlexString   `json:"series"`
	Correlative  FlexString   `json:"correlative"`
	IssueDate    string       `json:"issueDate"`
	IssueTime    string       `json:"issueTime"`
	Currency     string       `json:"currency"`
	Supplier     RawSupplier  `json:"supplier"`
	Customer     *RawParty    `json:"customer"`
	LineItems    []RawLine    `json:"lineItems"`
	Totals       *RawTotals   `json:"totals"`
	PaymentForm  string       `json:"paymentForm"`
	TaxRate      Amount       `json:"taxRate"`
	Reference    *RawRef      `json:"billingReference"`
	Discrepancy  *RawReason   `json:"discrepancy"`
	Dispatch     *RawDispatch `json:"dispatch"`
}

// RawSupplier emisor.
type RawSupplier struct {
	RUC       FlexString     `json:"ruc"`
	LegalName string         `json:"legalName"`
	TradeName string         `json:"tradeName"`
	Address   entity.Address `json:"address"`
}

// RawParty cliente o destinatario.
type RawParty struct {
	DocType   FlexString     `json:"docType"`
	DocNumber FlexString     `json:"docNumber"`
	LegalName string         `json:"legalName"`
	Address   entity.Address `json:"address"`
}

// RawLine línea con montos opcionales; los informados prevalecen sobre el cálculo.
type RawLine struct {
	Description     string     `json:"description"`
	Code            FlexString `json:"code"`
	Quantity        Amount     `json:"quantity"`
	UnitCode        string     `json:"unitCode"`
	UnitPrice       Amount     `json:"unitPrice"`
	Subtotal        Amount     `json:"lineSubtotal"`
	Tax             Amount     `json:"lineTax"`
	Total           Amount     `json:"lineTotal"`
	AffectationCode string     `json:"affectationCode"`
}

// RawTotals totales informados por el llamador.
type RawTotals struct {
	Subtotal Amount `json:"subtotal"`
	Tax      Amount `json:"tax"`
	Total    Amount `json:"total"`
}

// RawRef referencia a comprobante.
type RawRef struct {
	DocumentTypeCode FlexString `json:"documentTypeCode"`
	Series           FlexString `json:"series"`
	Correlative      FlexString `json:"correlative"`
	IssuerRUC        FlexString `json:"issuerRuc"`
}

// RawReason motivo de nota de crédito.
type RawReason struct {
	Code        FlexString `json:"code"`
	Description string     `json:"description"`
}

// RawDispatch bloque de guía de remisión.
type RawDispatch struct {
	Consignee       *RawParty      `json:"consignee"`
	Carrier         entity.Carrier `json:"carrier"`
	Shipment        RawShipment    `json:"shipment"`
	RelatedDocument *RawRef        `json:"relatedDocument"`
	Note            string         `json:"note"`
}

// RawShipment datos del traslado.
type RawShipment struct {
	TransferReasonCode FlexString     `json:"transferReasonCode"`
	TransferReason     string         `json:"transferReason"`
	TransportModeCode  FlexString     `json:"transportModeCode"`
	GrossWeight        Amount         `json:"grossWeight"`
	WeightUnitCode     string         `json:"weightUnitCode"`
	StartDate          string         `json:"startDate"`
	Origin             entity.Address `json:"origin"`
	Destination        entity.Address `json:"destination"`
}

// Normalizer convierte RawDocument en entity.DocumentRequest con montos resueltos.
type Normalizer struct {
	TaxRate decimal.Decimal
	Now     func() time.Time
}

// NewNormalizer crea el normalizador con la tasa indicada (porcentaje); cero usa 18%.
func NewNormalizer(taxRate decimal.Decimal) *Normalizer {
	if taxRate.IsZero() {
		taxRate = DefaultIGVRate
	}
	return &Normalizer{TaxRate: taxRate, Now: time.Now}
}

// Normalize resuelve tipo, montos por línea y totales. Los montos informados por el
// llamador prevalecen sobre el recálculo; los totales del request prevalecen sobre
// la suma de líneas.
func (n *Normalizer) Normalize(raw RawDocument) (*entity.DocumentRequest, error) {
	kind, ok := entity.KindFromTypeCode(strings.ToUpper(strings.TrimSpace(raw.DocumentKind)))
	if !ok {
		return nil, domain.NewValidationError("documentKind desconocido %q", raw.DocumentKind)
	}

	doc := &entity.DocumentRequest{
		Series:      strings.ToUpper(string(raw.Series)),
		Correlative: string(raw.Correlative),
		IssueDate:   strings.TrimSpace(raw.IssueDate),
		IssueTime:   strings.TrimSpace(raw.IssueTime),
		Currency:    strings.ToUpper(strings.TrimSpace(raw.Currency)),
		Supplier: entity.Supplier{
			RUC:       string(raw.Supplier.RUC),
			LegalName: strings.TrimSpace(raw.Supplier.LegalName),
			TradeName: strings.TrimSpace(raw.Supplier.TradeName),
			Address:   raw.Supplier.Address,
		},
	}
	if doc.Currency == "" {
		doc.Currency = "PEN"
	}
	if doc.IssueDate == "" || doc.IssueTime == "" {
		now := n.now().In(limaZone)
		if doc.IssueDate == "" {
			doc.IssueDate = now.Format("2006-01-02")
		}
		if doc.IssueTime == "" {
			doc.IssueTime = now.Format("15:04:05")
		}
	}

	rate := n.TaxRate
	if raw.TaxRate.Set {
		rate = raw.TaxRate.Value
	}

	switch kind {
	case entity.KindInvoice, entity.KindSimplifiedReceipt, entity.KindCreditNote:
		lines, err := normalizeLines(raw.LineItems, rate)
		if err != nil {
			return nil, err
		}
		totals := aggregateTotals(lines, raw.Totals)
		customer := normalizeParty(raw.Customer)

		switch kind {
		case entity.KindInvoice:
			form := raw.PaymentForm
			if form == "" {
				form = "Contado"
			}
			doc.Body = entity.Invoice{Customer: customer, Lines: lines, Totals: totals, PaymentForm: form}
		case entity.KindSimplifiedReceipt:
			if raw.Customer == nil {
				customer = entity.Party{
					DocType:   sunat.IdentityTypeNonDomiciled,
					DocNumber: "00000000",
					LegalName: "CLIENTES VARIOS",
				}
			}
			doc.Body = entity.SimplifiedReceipt{Customer: customer, Lines: lines, Totals: totals}
		case entity.KindCreditNote:
			note := entity.CreditNote{Customer: customer, Lines: lines, Totals: totals}
			if raw.Reference != nil {
				note.Reference = normalizeRef(*raw.Reference)
			}
			if raw.Discrepancy != nil {
				note.Reason = entity.DiscrepancyReason{
					Code:        string(raw.Discrepancy.Code),
					Description: strings.TrimSpace(raw.Discrepancy.Description),
				}
				if note.Reason.Description == "" {
					note.Reason.Description = sunat.CreditNoteReasons[note.Reason.Code]
				}
			}
			doc.Body = note
		}

	case entity.KindDispatchAdvice:
		body, err := normalizeDispatch(raw, doc.IssueDate)
		if err != nil {
			return nil, err
		}
		doc.Body = body
	}
	return doc, nil
}

func (n *Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func normalizeLines(raw []RawLine, rate decimal.Decimal) ([]entity.LineItem, error) {
	lines := make([]entity.LineItem, 0, len(raw))
	for i, rl := range raw {
		qty := decimal.NewFromInt(1)
		if rl.Quantity.Set {
			qty = rl.Quantity.Value
		}
		if !qty.IsPositive() {
			return nil, domain.NewValidationError("línea %d: cantidad debe ser mayor a cero", i+1)
		}
		affectation := rl.AffectationCode
		if affectation == "" {
			affectation = sunat.AffectationTaxed
		}
		lineRate := rate
		if !sunat.IsTaxedAffectation(affectation) {
			lineRate = decimal.Zero
		}

		var unitPrice, subtotal decimal.Decimal
		switch {
		case rl.UnitPrice.Set:
			unitPrice = rl.UnitPrice.Value
			subtotal = qty.Mul(unitPrice).Round(2)
		case rl.Subtotal.Set:
			subtotal = rl.Subtotal.Value
			unitPrice = subtotal.Div(qty).Round(10)
		default:
			return nil, domain.NewValidationError("línea %d: falta precio unitario", i+1)
		}
		if rl.Subtotal.Set {
			subtotal = rl.Subtotal.Value.Round(2)
		}
		tax := subtotal.Mul(lineRate).Div(hundred).Round(2)
		if rl.Tax.Set {
			tax = rl.Tax.Value.Round(2)
		}
		total := subtotal.Add(tax)
		if rl.Total.Set {
			total = rl.Total.Value.Round(2)
		}
		unitCode := strings.ToUpper(strings.TrimSpace(rl.UnitCode))
		if unitCode == "" {
			unitCode = sunat.UnitProduct
		}
		lines = append(lines, entity.LineItem{
			Description:     strings.TrimSpace(rl.Description),
			Code:            string(rl.Code),
			Quantity:        qty,
			UnitCode:        unitCode,
			UnitPrice:       unitPrice,
			Subtotal:        subtotal,
			Tax:             tax,
			Total:           total,
			TaxRate:         lineRate,
			AffectationCode: affectation,
		})
	}
	return lines, nil
}

// aggregateTotals suma las líneas; cada total informado en el request prevalece.
func aggregateTotals(lines []entity.LineItem, supplied *RawTotals) entity.Totals {
	var t entity.Totals
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Subtotal)
		t.Tax = t.Tax.Add(l.Tax)
		t.Total = t.Total.Add(l.Total)
	}
	if supplied != nil {
		if supplied.Subtotal.Set {
			t.Subtotal = supplied.Subtotal.Value
		}
		if supplied.Tax.Set {
			t.Tax = supplied.Tax.Value
		}
		if supplied.Total.Set {
			t.Total = supplied.Total.Value
		}
	}
	t.Subtotal = t.Subtotal.Round(2)
	t.Tax = t.Tax.Round(2)
	t.Total = t.Total.Round(2)
	return t
}

func normalizeParty(raw *RawParty) entity.Party {
	if raw == nil {
		return entity.Party{}
	}
	return entity.Party{
		DocType:   string(raw.DocType),
		DocNumber: string(raw.DocNumber),
		LegalName: strings.TrimSpace(raw.LegalName),
		Address:   raw.Address,
	}
}

func normalizeRef(raw RawRef) entity.DocumentReference {
	return entity.DocumentReference{
		DocumentTypeCode: string(raw.DocumentTypeCode),
		Series:           strings.ToUpper(string(raw.Series)),
		Correlative:      string(raw.Correlative),
		IssuerRUC:        string(raw.IssuerRUC),
	}
}

func normalizeDispatch(raw RawDocument, issueDate string) (entity.DispatchAdvice, error) {
	if raw.Dispatch == nil {
		return entity.DispatchAdvice{}, domain.NewValidationError("guía de remisión sin bloque dispatch")
	}
	d := raw.Dispatch
	body := entity.DispatchAdvice{
		Consignee: normalizeParty(d.Consignee),
		Carrier:   d.Carrier,
		Note:      strings.TrimSpace(d.Note),
		Shipment: entity.Shipment{
			TransferReasonCode: string(d.Shipment.TransferReasonCode),
			TransferReason:     d.Shipment.TransferReason,
			TransportModeCode:  string(d.Shipment.TransportModeCode),
			GrossWeight:        d.Shipment.GrossWeight.Value,
			WeightUnitCode:     strings.ToUpper(d.Shipment.WeightUnitCode),
			StartDate:          d.Shipment.StartDate,
			Origin:             d.Shipment.Origin,
			Destination:        d.Shipment.Destination,
		},
	}
	if body.Shipment.TransferReasonCode == "" {
		body.Shipment.TransferReasonCode = "01"
	}
	if body.Shipment.TransferReason == "" {
		body.Shipment.TransferReason = sunat.TransferReasons[body.Shipment.TransferReasonCode]
	}
	if body.Shipment.TransportModeCode == "" {
		body.Shipment.TransportModeCode = sunat.TransportModePublic
	}
	if body.Shipment.WeightUnitCode == "" {
		body.Shipment.WeightUnitCode = sunat.UnitKilogram
	}
	if body.Shipment.StartDate == "" {
		body.Shipment.StartDate = issueDate
	}
	if d.RelatedDocument != nil {
		body.RelatedDocument = normalizeRef(*d.RelatedDocument)
	}
	for i, rl := range raw.LineItems {
		qty := decimal.NewFromInt(1)
		if rl.Quantity.Set {
			qty = rl.Quantity.Value
		}
		if !qty.IsPositive() {
			return entity.DispatchAdvice{}, domain.NewValidationError("ítem %d: cantidad debe ser mayor a cero", i+1)
		}
		unit := strings.ToUpper(rl.UnitCode)
		if unit == "" {
			unit = sunat.UnitProduct
		}
		body.Items = append(body.Items, entity.DispatchItem{
			Description: strings.TrimSpace(rl.Description),
			Code:        string(rl.Code),
			Quantity:    qty,
			UnitCode:    unit,
		})
	}
	return body, nil
}

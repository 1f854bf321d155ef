package sunat

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// ErrInvalidDocument agrupa errores de validación de comprobante.
var ErrInvalidDocument = errors.New("comprobante inválido para SUNAT")

var (
	seriesPattern      = regexp.MustCompile(`^[A-Z0-9]{4}$`)
	correlativePattern = regexp.MustCompile(`^[0-9]{1,8}$`)
	currencyPattern    = regexp.MustCompile(`^[A-Z]{3}$`)
)

// totalsTolerance tolerancia de redondeo (2 decimales).
var totalsTolerance = decimal.RequireFromString("0.01")

// ValidateOptions ajustes de validación.
type ValidateOptions struct {
	// StrictRUC exige el dígito verificador módulo 11 además del formato.
	StrictRUC bool
}

// ValidateDocument valida el comprobante normalizado antes de construir el XML.
// Devuelve *domain.ValidationError con todos los problemas encontrados.
func ValidateDocument(doc *entity.DocumentRequest, opts ValidateOptions) error {
	if doc == nil || doc.Body == nil {
		return &domain.ValidationError{Err: fmt.Errorf("%w: documento vacío", ErrInvalidDocument)}
	}
	var errs []error

	if !seriesPattern.MatchString(doc.Series) {
		errs = append(errs, fmt.Errorf("serie inválida %q", doc.Series))
	}
	if !correlativePattern.MatchString(doc.Correlative) {
		errs = append(errs, fmt.Errorf("correlativo inválido %q", doc.Correlative))
	}
	if !currencyPattern.MatchString(doc.Currency) {
		errs = append(errs, fmt.Errorf("moneda inválida %q", doc.Currency))
	}
	if _, err := time.Parse("2006-01-02", doc.IssueDate); err != nil {
		errs = append(errs, fmt.Errorf("fecha de emisión inválida %q", doc.IssueDate))
	}
	if _, err := time.Parse("15:04:05", doc.IssueTime); err != nil {
		errs = append(errs, fmt.Errorf("hora de emisión inválida %q", doc.IssueTime))
	}

	if opts.StrictRUC {
		if err := sunat.ValidateRUCCheckDigit(doc.Supplier.RUC); err != nil {
			errs = append(errs, fmt.Errorf("emisor: %w", err))
		}
	} else if err := sunat.ValidateRUCFormat(doc.Supplier.RUC); err != nil {
		errs = append(errs, fmt.Errorf("emisor: %w", err))
	}
	if doc.Supplier.LegalName == "" {
		errs = append(errs, errors.New("emisor: razón social requerida"))
	}

	switch body := doc.Body.(type) {
	case entity.Invoice:
		if body.Customer.DocType != sunat.IdentityTypeRUC {
			errs = append(errs, fmt.Errorf("factura: el cliente debe identificarse con RUC (tipo 6), se recibió %q", body.Customer.DocType))
		} else if err := sunat.ValidateRUCFormat(body.Customer.DocNumber); err != nil {
			errs = append(errs, fmt.Errorf("cliente: %w", err))
		}
		errs = append(errs, validatePartyName("cliente", body.Customer)...)
		errs = append(errs, validateLines(body.Lines, body.Totals)...)
	case entity.SimplifiedReceipt:
		errs = append(errs, validateParty("cliente", body.Customer)...)
		errs = append(errs, validateLines(body.Lines, body.Totals)...)
	case entity.CreditNote:
		errs = append(errs, validateParty("cliente", body.Customer)...)
		errs = append(errs, validateLines(body.Lines, body.Totals)...)
		if body.Reference.IsZero() {
			errs = append(errs, errors.New("nota de crédito: falta BillingReference al comprobante afectado"))
		} else {
			if !seriesPattern.MatchString(body.Reference.Series) || !correlativePattern.MatchString(body.Reference.Correlative) {
				errs = append(errs, fmt.Errorf("nota de crédito: referencia inválida %q", body.Reference.ID()))
			}
			if code := body.Reference.DocumentTypeCode; code != sunat.DocTypeInvoice && code != sunat.DocTypeReceipt {
				errs = append(errs, fmt.Errorf("nota de crédito: tipo de documento referido inválido %q", code))
			}
		}
		if body.Reason.Code == "" {
			errs = append(errs, errors.New("nota de crédito: falta DiscrepancyResponse (motivo)"))
		} else if _, ok := sunat.CreditNoteReasons[body.Reason.Code]; !ok {
			errs = append(errs, fmt.Errorf("nota de crédito: motivo desconocido %q", body.Reason.Code))
		}
	case entity.DispatchAdvice:
		errs = append(errs, validateParty("destinatario", body.Consignee)...)
		if body.RelatedDocument.IsZero() {
			errs = append(errs, errors.New("guía: falta la referencia al comprobante de venta"))
		}
		if len(body.Items) == 0 {
			errs = append(errs, errors.New("guía: debe tener al menos un bien trasladado"))
		}
		if _, ok := sunat.TransferReasons[body.Shipment.TransferReasonCode]; !ok {
			errs = append(errs, fmt.Errorf("guía: motivo de traslado desconocido %q", body.Shipment.TransferReasonCode))
		}
		if !body.Shipment.GrossWeight.IsPositive() {
			errs = append(errs, errors.New("guía: peso bruto debe ser mayor a cero"))
		}
		if body.Shipment.Origin.Ubigeo == "" || body.Shipment.Destination.Ubigeo == "" {
			errs = append(errs, errors.New("guía: ubigeo de partida y llegada requeridos"))
		}
		switch body.Shipment.TransportModeCode {
		case sunat.TransportModePublic:
			if body.Carrier.DocNumber == "" || body.Carrier.LegalName == "" {
				errs = append(errs, errors.New("guía: transporte público requiere RUC y razón social del transportista"))
			}
		case sunat.TransportModePrivate:
			if body.Carrier.VehiclePlate == "" || body.Carrier.DriverDocNumber == "" {
				errs = append(errs, errors.New("guía: transporte privado requiere placa y conductor"))
			}
		default:
			errs = append(errs, fmt.Errorf("guía: modalidad de traslado desconocida %q", body.Shipment.TransportModeCode))
		}
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Err: errors.Join(append([]error{ErrInvalidDocument}, errs...)...)}
	}
	return nil
}

func validateParty(role string, p entity.Party) []error {
	var errs []error
	if !sunat.ValidIdentityTypes[p.DocType] {
		errs = append(errs, fmt.Errorf("%s: tipo de documento de identidad desconocido %q", role, p.DocType))
	}
	if p.DocNumber == "" {
		errs = append(errs, fmt.Errorf("%s: número de documento requerido", role))
	}
	return append(errs, validatePartyName(role, p)...)
}

func validatePartyName(role string, p entity.Party) []error {
	if p.LegalName == "" {
		return []error{fmt.Errorf("%s: nombre o razón social requerido", role)}
	}
	return nil
}

// validateLines exige al menos una línea y total == subtotal + impuesto (tolerancia 0.01).
// Los totales del request pueden diferir de la suma de líneas sin ser error.
func validateLines(lines []entity.LineItem, totals entity.Totals) []error {
	var errs []error
	if len(lines) == 0 {
		return []error{errors.New("el comprobante debe tener al menos una línea")}
	}
	for i, l := range lines {
		if l.Description == "" {
			errs = append(errs, fmt.Errorf("línea %d: descripción requerida", i+1))
		}
		if l.Subtotal.IsNegative() || l.Tax.IsNegative() {
			errs = append(errs, fmt.Errorf("línea %d: montos negativos", i+1))
		}
	}
	expected := totals.Subtotal.Add(totals.Tax)
	if totals.Total.Sub(expected).Abs().GreaterThan(totalsTolerance) {
		errs = append(errs, fmt.Errorf("total (%s) no coincide con subtotal + impuesto (%s)",
			totals.Total.StringFixed(2), expected.StringFixed(2)))
	}
	return errs
}

package sunat

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// Namespaces oficiales UBL 2.1 usados por SUNAT.
const (
	NsInvoice        = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCreditNote     = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"
	NsDespatchAdvice = "urn:oasis:names:specification:ubl:schema:xsd:DespatchAdvice-2"
	NsCac            = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc            = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt            = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	NsDs             = "http://www.w3.org/2000/09/xmldsig#"
)

const (
	ublVersion      = "2.1"
	customizationID = "2.0"
	catalogAgency   = "PE:SUNAT"
)

// UnsignedDocument XML UBL listo para digest y firma.
type UnsignedDocument struct {
	XML []byte
	// ReferenceURI "#F001-123" para Invoice/CreditNote, "" (documento completo) para DespatchAdvice.
	ReferenceURI string
}

// node elemento XML inmutable; el árbol se arma completo y luego se serializa.
type node struct {
	name     string
	attrs    []xml.Attr
	text     string
	children []node
}

func el(name string, children ...node) node {
	return node{name: name, children: children}
}

func leaf(name, text string, attrs ...xml.Attr) node {
	return node{name: name, text: text, attrs: attrs}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func (n node) withAttrs(attrs ...xml.Attr) node {
	n.attrs = append(append([]xml.Attr(nil), n.attrs...), attrs...)
	return n
}

func cbc(local, value string, attrs ...xml.Attr) node { return leaf("cbc:"+local, value, attrs...) }
func cac(local string, children ...node) node       { return el("cac:"+local, children...) }

func amount(local string, value decimal.Decimal, currency string) node {
	return cbc(local, formatDecimal(value), attr("currencyID", currency))
}

func (n node) encode(enc *xml.Encoder) error {
	start := xml.StartElement{Name: xml.Name{Local: n.name}, Attr: n.attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.text != "" {
		if err := enc.EncodeToken(xml.CharData(n.text)); err != nil {
			return err
		}
	}
	for _, c := range n.children {
		if err := c.encode(enc); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// render serializa el árbol sin indentación: el digest se calcula sobre este mismo texto.
func render(root node) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	enc := xml.NewEncoder(&buf)
	if err := root.encode(enc); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// XMLBuilderService construye el XML UBL 2.1 del comprobante (sin firma).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el XML según la variante del comprobante. Es determinista: no lee el reloj.
func (s *XMLBuilderService) Build(doc *entity.DocumentRequest) (*UnsignedDocument, error) {
	if doc == nil || doc.Body == nil {
		return nil, fmt.Errorf("sunat: documento sin cuerpo")
	}
	var (
		root node
		uri  string
	)
	switch body := doc.Body.(type) {
	case entity.Invoice:
		root = buildInvoice(doc, body.Customer, body.Lines, body.Totals, sunat.DocTypeInvoice, body.PaymentForm)
		uri = "#" + doc.ID()
	case entity.SimplifiedReceipt:
		root = buildInvoice(doc, body.Customer, body.Lines, body.Totals, sunat.DocTypeReceipt, "")
		uri = "#" + doc.ID()
	case entity.CreditNote:
		ref := body.Reference
		if ref.Series == "" || ref.Correlative == "" || ref.DocumentTypeCode == "" {
			return nil, domain.NewValidationError("nota de crédito: falta BillingReference al comprobante afectado")
		}
		root = buildCreditNote(doc, body)
		uri = "#" + doc.ID()
	case entity.DispatchAdvice:
		root = buildDespatchAdvice(doc, body)
	default:
		return nil, fmt.Errorf("sunat: variante de documento no soportada %T", body)
	}
	out, err := render(root)
	if err != nil {
		return nil, fmt.Errorf("sunat: serializar XML: %w", err)
	}
	return &UnsignedDocument{XML: out, ReferenceURI: uri}, nil
}

// rootAttrs namespaces del documento. ds se declara en la raíz para que la firma
// empalmada no requiera redeclararlo.
func rootAttrs(defaultNs string, id string) []xml.Attr {
	attrs := []xml.Attr{
		attr("xmlns", defaultNs),
		attr("xmlns:cac", NsCac),
		attr("xmlns:cbc", NsCbc),
		attr("xmlns:ds", NsDs),
		attr("xmlns:ext", NsExt),
	}
	if id != "" {
		attrs = append(attrs, attr("Id", id))
	}
	return attrs
}

// ublExtensions placeholder vacío: el firmador inyecta ds:Signature en ExtensionContent.
func ublExtensions() node {
	return el("ext:UBLExtensions",
		el("ext:UBLExtension",
			el("ext:ExtensionContent"),
		),
	)
}

// signatureReference cac:Signature que apunta al ds:Signature embebido.
func signatureReference(sup entity.Supplier) node {
	return cac("Signature",
		cbc("ID", sunat.SignatureID),
		cac("SignatoryParty",
			cac("PartyIdentification", cbc("ID", sup.RUC)),
			cac("PartyName", cbc("Name", sup.LegalName)),
		),
		cac("DigitalSignatureAttachment",
			cac("ExternalReference", cbc("URI", "#"+sunat.SignatureID)),
		),
	)
}

func supplierParty(wrapper string, sup entity.Supplier) node {
	party := []node{
		cac("PartyIdentification", cbc("ID", sup.RUC, attr("schemeID", sunat.IdentityTypeRUC))),
	}
	if sup.TradeName != "" {
		party = append(party, cac("PartyName", cbc("Name", sup.TradeName)))
	}
	legal := []node{cbc("RegistrationName", sup.LegalName)}
	if a := sup.Address; a.Ubigeo != "" || a.Line != "" {
		legal = append(legal, registrationAddress(a))
	}
	party = append(party, cac("PartyLegalEntity", legal...))
	return cac(wrapper, cac("Party", party...))
}

func registrationAddress(a entity.Address) node {
	children := []node{}
	if a.Ubigeo != "" {
		children = append(children, cbc("ID", a.Ubigeo))
	}
	children = append(children, cbc("AddressTypeCode", "0000"))
	if a.Province != "" {
		children = append(children, cbc("CityName", a.Province))
	}
	if a.Department != "" {
		children = append(children, cbc("CountrySubentity", a.Department))
	}
	if a.District != "" {
		children = append(children, cbc("District", a.District))
	}
	if a.Line != "" {
		children = append(children, cac("AddressLine", cbc("Line", a.Line)))
	}
	country := a.Country
	if country == "" {
		country = "PE"
	}
	children = append(children, cac("Country", cbc("IdentificationCode", country)))
	return cac("RegistrationAddress", children...)
}

func customerParty(wrapper string, p entity.Party) node {
	legal := []node{cbc("RegistrationName", p.LegalName)}
	if p.Address.Line != "" {
		legal = append(legal, cac("RegistrationAddress", cac("AddressLine", cbc("Line", p.Address.Line))))
	}
	return cac(wrapper, cac("Party",
		cac("PartyIdentification", cbc("ID", p.DocNumber, attr("schemeID", p.DocType))),
		cac("PartyLegalEntity", legal...),
	))
}

// taxScheme esquema tributario (catálogo 05) según la afectación de la línea.
func taxScheme(affectation string) (id, name, typeCode string) {
	switch {
	case sunat.IsTaxedAffectation(affectation):
		return sunat.TaxSchemeIGV, sunat.TaxSchemeIGVName, sunat.TaxSchemeIGVType
	case affectation == sunat.AffectationExonerated:
		return sunat.TaxSchemeExo, sunat.TaxSchemeExoName, sunat.TaxSchemeIGVType
	default:
		return sunat.TaxSchemeIna, sunat.TaxSchemeInaName, sunat.TaxSchemeFreeType
	}
}

func taxSchemeNode(affectation string) node {
	id, name, typeCode := taxScheme(affectation)
	return cac("TaxScheme", cbc("ID", id), cbc("Name", name), cbc("TaxTypeCode", typeCode))
}

// documentTaxTotal agrupa por esquema tributario conservando el orden de aparición.
// El monto total de impuesto es el del request (totals.Tax).
func documentTaxTotal(lines []entity.LineItem, totals entity.Totals, currency string) node {
	type group struct {
		affectation     string
		taxable, amount decimal.Decimal
	}
	var order []string
	groups := map[string]*group{}
	for _, l := range lines {
		id, _, _ := taxScheme(l.AffectationCode)
		g, ok := groups[id]
		if !ok {
			g = &group{affectation: l.AffectationCode}
			groups[id] = g
			order = append(order, id)
		}
		g.taxable = g.taxable.Add(l.Subtotal)
		g.amount = g.amount.Add(l.Tax)
	}
	children := []node{amount("TaxAmount", totals.Tax, currency)}
	for _, id := range order {
		g := groups[id]
		taxAmount := g.amount
		if id == sunat.TaxSchemeIGV && len(order) == 1 {
			taxAmount = totals.Tax
		}
		children = append(children, cac("TaxSubtotal",
			amount("TaxableAmount", g.taxable, currency),
			amount("TaxAmount", taxAmount, currency),
			cac("TaxCategory", taxSchemeNode(g.affectation)),
		))
	}
	return cac("TaxTotal", children...)
}

func legalMonetaryTotal(totals entity.Totals, currency string) node {
	return cac("LegalMonetaryTotal",
		amount("LineExtensionAmount", totals.Subtotal, currency),
		amount("TaxInclusiveAmount", totals.Total, currency),
		amount("PayableAmount", totals.Total, currency),
	)
}

// documentLine cac:InvoiceLine o cac:CreditNoteLine.
func documentLine(wrapper, quantityTag string, index int, l entity.LineItem, currency string) node {
	priceWithTax := l.UnitPrice
	if l.Quantity.IsPositive() {
		priceWithTax = l.Total.Div(l.Quantity)
	}
	item := []node{cbc("Description", l.Description)}
	if l.Code != "" {
		item = append(item, cac("SellersItemIdentification", cbc("ID", l.Code)))
	}
	return cac(wrapper,
		cbc("ID", strconv.Itoa(index)),
		cbc(quantityTag, formatQuantity(l.Quantity), attr("unitCode", l.UnitCode)),
		amount("LineExtensionAmount", l.Subtotal, currency),
		cac("PricingReference",
			cac("AlternativeConditionPrice",
				cbc("PriceAmount", formatPrice(priceWithTax), attr("currencyID", currency)),
				cbc("PriceTypeCode", sunat.PriceTypeUnitWithTax),
			),
		),
		cac("TaxTotal",
			amount("TaxAmount", l.Tax, currency),
			cac("TaxSubtotal",
				amount("TaxableAmount", l.Subtotal, currency),
				amount("TaxAmount", l.Tax, currency),
				cac("TaxCategory",
					cbc("Percent", formatPercent(l.TaxRate)),
					cbc("TaxExemptionReasonCode", l.AffectationCode),
					taxSchemeNode(l.AffectationCode),
				),
			),
		),
		cac("Item", item...),
		cac("Price", cbc("PriceAmount", formatPrice(l.UnitPrice), attr("currencyID", currency))),
	)
}

func formatDecimal(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// formatQuantity hasta 10 decimales, sin ceros de relleno.
func formatQuantity(d decimal.Decimal) string {
	return d.Round(10).String()
}

// formatPrice al menos 2 decimales y como máximo 10.
func formatPrice(d decimal.Decimal) string {
	s := d.Round(10).String()
	if i := strings.IndexByte(s, '.'); i < 0 || len(s)-i-1 < 2 {
		return d.StringFixed(2)
	}
	return s
}

func formatPercent(d decimal.Decimal) string {
	return d.Round(2).String()
}

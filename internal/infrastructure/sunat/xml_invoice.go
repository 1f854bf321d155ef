package sunat

import (
	"strconv"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// header cbc comunes a Invoice y CreditNote: versión, ID, fecha y hora.
func header(doc *entity.DocumentRequest) []node {
	return []node{
		cbc("UBLVersionID", ublVersion),
		cbc("CustomizationID", customizationID),
		cbc("ID", doc.ID()),
		cbc("IssueDate", doc.IssueDate),
		cbc("IssueTime", doc.IssueTime),
	}
}

// buildInvoice Invoice (01) y boleta (03): mismo esquema, distinto InvoiceTypeCode.
func buildInvoice(doc *entity.DocumentRequest, customer entity.Party, lines []entity.LineItem, totals entity.Totals, typeCode, paymentForm string) node {
	children := []node{ublExtensions()}
	children = append(children, header(doc)...)
	children = append(children,
		cbc("InvoiceTypeCode", typeCode,
			attr("listID", sunat.OperationTypeInternalSale),
			attr("listAgencyName", catalogAgency),
			attr("listName", "Tipo de Documento"),
			attr("listURI", "urn:pe:gob:sunat:cpe:see:gem:catalogos:catalogo01"),
		),
		cbc("Note", sunat.AmountInWords(totals.Total, doc.Currency), attr("languageLocaleID", sunat.LegendAmountInWords)),
		cbc("DocumentCurrencyCode", doc.Currency),
		cbc("LineCountNumeric", strconv.Itoa(len(lines))),
		signatureReference(doc.Supplier),
		supplierParty("AccountingSupplierParty", doc.Supplier),
		customerParty("AccountingCustomerParty", customer),
	)
	// Forma de pago obligatoria solo en facturas.
	if typeCode == sunat.DocTypeInvoice {
		children = append(children, cac("PaymentTerms",
			cbc("ID", "FormaPago"),
			cbc("PaymentMeansID", paymentForm),
		))
	}
	children = append(children,
		documentTaxTotal(lines, totals, doc.Currency),
		legalMonetaryTotal(totals, doc.Currency),
	)
	for i, l := range lines {
		children = append(children, documentLine("InvoiceLine", "InvoicedQuantity", i+1, l, doc.Currency))
	}
	return el("Invoice", children...).withAttrs(rootAttrs(NsInvoice, doc.ID())...)
}

// buildCreditNote CreditNote (07) con DiscrepancyResponse y BillingReference al comprobante afectado.
func buildCreditNote(doc *entity.DocumentRequest, note entity.CreditNote) node {
	ref := note.Reference
	children := []node{ublExtensions()}
	children = append(children, header(doc)...)
	children = append(children,
		cbc("Note", sunat.AmountInWords(note.Totals.Total, doc.Currency), attr("languageLocaleID", sunat.LegendAmountInWords)),
		cbc("DocumentCurrencyCode", doc.Currency),
		cac("DiscrepancyResponse",
			cbc("ReferenceID", ref.ID()),
			cbc("ResponseCode", note.Reason.Code),
			cbc("Description", note.Reason.Description),
		),
		cac("BillingReference",
			cac("InvoiceDocumentReference",
				cbc("ID", ref.ID()),
				cbc("DocumentTypeCode", ref.DocumentTypeCode),
			),
		),
		signatureReference(doc.Supplier),
		supplierParty("AccountingSupplierParty", doc.Supplier),
		customerParty("AccountingCustomerParty", note.Customer),
		documentTaxTotal(note.Lines, note.Totals, doc.Currency),
		legalMonetaryTotal(note.Totals, doc.Currency),
	)
	for i, l := range note.Lines {
		children = append(children, documentLine("CreditNoteLine", "CreditedQuantity", i+1, l, doc.Currency))
	}
	return el("CreditNote", children...).withAttrs(rootAttrs(NsCreditNote, doc.ID())...)
}

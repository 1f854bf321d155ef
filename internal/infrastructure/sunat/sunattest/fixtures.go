// Package sunattest comprobantes y respuestas SUNAT de ejemplo para pruebas.
package sunattest

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// SupplierRUC RUC del emisor de los comprobantes de ejemplo.
const SupplierRUC = "20100000001"

// Supplier emisor de ejemplo.
func Supplier() entity.Supplier {
	return entity.Supplier{
		RUC:       SupplierRUC,
		LegalName: "EMPRESA DEMO S.A.C.",
		TradeName: "DEMO",
		Address: entity.Address{
			Ubigeo:     "150101",
			Line:       "AV. AREQUIPA 123",
			District:   "LIMA",
			Province:   "LIMA",
			Department: "LIMA",
		},
	}
}

// Line línea gravada con IGV 18% a partir del precio sin impuesto.
func Line(description string, qty, unitPrice string) entity.LineItem {
	q := decimal.RequireFromString(qty)
	p := decimal.RequireFromString(unitPrice)
	sub := q.Mul(p).Round(2)
	tax := sub.Mul(decimal.NewFromInt(18)).Div(decimal.NewFromInt(100)).Round(2)
	return entity.LineItem{
		Description:     description,
		Quantity:        q,
		UnitCode:        sunat.UnitProduct,
		UnitPrice:       p,
		Subtotal:        sub,
		Tax:             tax,
		Total:           sub.Add(tax),
		TaxRate:         decimal.NewFromInt(18),
		AffectationCode: sunat.AffectationTaxed,
	}
}

// TotalsOf suma las líneas.
func TotalsOf(lines []entity.LineItem) entity.Totals {
	var t entity.Totals
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Subtotal)
		t.Tax = t.Tax.Add(l.Tax)
	}
	t.Total = t.Subtotal.Add(t.Tax)
	return t
}

// Invoice factura F001-123 por 100 + IGV.
func Invoice() *entity.DocumentRequest {
	lines := []entity.LineItem{Line("PRODUCTO DE PRUEBA", "1", "100")}
	return &entity.DocumentRequest{
		Series:      "F001",
		Correlative: "123",
		IssueDate:   "2024-05-10",
		IssueTime:   "10:30:00",
		Currency:    "PEN",
		Supplier:    Supplier(),
		Body: entity.Invoice{
			Customer: entity.Party{
				DocType:   sunat.IdentityTypeRUC,
				DocNumber: "20100070970",
				LegalName: "CLIENTE CORPORATIVO S.A.",
			},
			Lines:       lines,
			Totals:      TotalsOf(lines),
			PaymentForm: "Contado",
		},
	}
}

// Receipt boleta B001-7 a cliente varios.
func Receipt() *entity.DocumentRequest {
	lines := []entity.LineItem{Line("ARTICULO", "2", "10.50")}
	return &entity.DocumentRequest{
		Series:      "B001",
		Correlative: "7",
		IssueDate:   "2024-05-10",
		IssueTime:   "11:00:00",
		Currency:    "PEN",
		Supplier:    Supplier(),
		Body: entity.SimplifiedReceipt{
			Customer: entity.Party{DocType: "0", DocNumber: "00000000", LegalName: "CLIENTES VARIOS"},
			Lines:    lines,
			Totals:   TotalsOf(lines),
		},
	}
}

// CreditNote nota FC01-5 que anula la factura F001-123.
func CreditNote() *entity.DocumentRequest {
	lines := []entity.LineItem{Line("PRODUCTO DE PRUEBA", "1", "100")}
	return &entity.DocumentRequest{
		Series:      "FC01",
		Correlative: "5",
		IssueDate:   "2024-05-11",
		IssueTime:   "09:00:00",
		Currency:    "PEN",
		Supplier:    Supplier(),
		Body: entity.CreditNote{
			Customer: entity.Party{DocType: sunat.IdentityTypeRUC, DocNumber: "20100070970", LegalName: "CLIENTE CORPORATIVO S.A."},
			Lines:    lines,
			Totals:   TotalsOf(lines),
			Reference: entity.DocumentReference{
				DocumentTypeCode: sunat.DocTypeInvoice,
				Series:           "F001",
				Correlative:      "123",
			},
			Reason: entity.DiscrepancyReason{Code: "01", Description: "Anulación de la operación"},
		},
	}
}

// DispatchAdvice guía T001-1 en transporte privado.
func DispatchAdvice() *entity.DocumentRequest {
	return &entity.DocumentRequest{
		Series:      "T001",
		Correlative: "1",
		IssueDate:   "2024-05-10",
		IssueTime:   "08:00:00",
		Currency:    "PEN",
		Supplier:    Supplier(),
		Body: entity.DispatchAdvice{
			Consignee: entity.Party{DocType: sunat.IdentityTypeRUC, DocNumber: "20100070970", LegalName: "CLIENTE CORPORATIVO S.A."},
			Carrier: entity.Carrier{
				DriverDocType:   sunat.IdentityTypeDNI,
				DriverDocNumber: "44556677",
				DriverName:      "JUAN PEREZ",
				DriverLicense:   "Q44556677",
				VehiclePlate:    "ABC123",
			},
			Shipment: entity.Shipment{
				TransferReasonCode: "01",
				TransferReason:     "Venta",
				TransportModeCode:  sunat.TransportModePrivate,
				GrossWeight:        decimal.RequireFromString("12.5"),
				WeightUnitCode:     sunat.UnitKilogram,
				StartDate:          "2024-05-10",
				Origin:             entity.Address{Ubigeo: "150101", Line: "AV. AREQUIPA 123"},
				Destination:        entity.Address{Ubigeo: "150122", Line: "CALLE LAS FLORES 456"},
			},
			Items: []entity.DispatchItem{
				{Description: "PRODUCTO DE PRUEBA", Code: "P-01", Quantity: decimal.NewFromInt(3), UnitCode: sunat.UnitProduct},
			},
			RelatedDocument: entity.DocumentReference{DocumentTypeCode: sunat.DocTypeInvoice, Series: "F001", Correlative: "123"},
		},
	}
}

// CDRXML ApplicationResponse mínimo con el código y la descripción dados.
func CDRXML(referenceID, code, description string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>`+
		`<ar:ApplicationResponse xmlns:ar="urn:oasis:names:specification:ubl:schema:xsd:ApplicationResponse-2"`+
		` xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"`+
		` xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">`+
		`<cbc:UBLVersionID>2.0</cbc:UBLVersionID><cbc:ID>1715350000000</cbc:ID>`+
		`<cbc:ResponseDate>2024-05-10</cbc:ResponseDate>`+
		`<cbc:Note>4252 - El dato ingresado como atributo @listName es incorrecto.</cbc:Note>`+
		`<cac:DocumentResponse><cac:Response>`+
		`<cbc:ReferenceID>%s</cbc:ReferenceID><cbc:ResponseCode>%s</cbc:ResponseCode><cbc:Description>%s</cbc:Description>`+
		`</cac:Response></cac:DocumentResponse></ar:ApplicationResponse>`, referenceID, code, description))
}

// ZipBase64 comprime xmlData en un ZIP R-{name}.xml y lo codifica en base64.
func ZipBase64(name string, xmlData []byte) string {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("R-" + name + ".xml")
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(xmlData); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// CDR applicationResponse listo para embeber en una respuesta SOAP o REST.
func CDR(referenceID, code, description string) string {
	return ZipBase64(referenceID, CDRXML(referenceID, code, description))
}

// SOAPSendBillResponse envelope sendBillResponse con el CDR dado.
func SOAPSendBillResponse(applicationResponse string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soap-env:Envelope xmlns:soap-env="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap-env:Body><br:sendBillResponse xmlns:br="http://service.sunat.gob.pe">` +
		`<applicationResponse>` + applicationResponse + `</applicationResponse>` +
		`</br:sendBillResponse></soap-env:Body></soap-env:Envelope>`
}

// SOAPFault envelope de error SUNAT.
func SOAPFault(code, message string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soap-env:Envelope xmlns:soap-env="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap-env:Body><soap-env:Fault><faultcode>` + code + `</faultcode>` +
		`<faultstring>` + message + `</faultstring></soap-env:Fault></soap-env:Body></soap-env:Envelope>`
}

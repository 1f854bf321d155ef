// Package sunat contiene catálogos y validaciones alineados a las especificaciones
// de comprobantes de pago electrónicos SUNAT (Perú), UBL 2.1.
package sunat

// =============================================================================
// Catálogo 01 - Tipo de documento
// =============================================================================

const (
	DocTypeInvoice        = "01" // Factura
	DocTypeReceipt        = "03" // Boleta de venta
	DocTypeCreditNote     = "07" // Nota de crédito
	DocTypeDebitNote      = "08" // Nota de débito (no emitida por este módulo)
	DocTypeDispatchAdvice = "09" // Guía de remisión remitente
)

// DocumentTypeNames nombres legibles usados en AdditionalDocumentReference.
var DocumentTypeNames = map[string]string{
	DocTypeInvoice:        "Factura",
	DocTypeReceipt:        "Boleta de Venta",
	DocTypeCreditNote:     "Nota de Crédito",
	DocTypeDebitNote:      "Nota de Débito",
	DocTypeDispatchAdvice: "Guía de Remisión Remitente",
}

// DefaultSeries serie por defecto cuando la empresa aún no emitió ese tipo de documento.
var DefaultSeries = map[string]string{
	DocTypeInvoice:        "F001",
	DocTypeReceipt:        "B001",
	DocTypeCreditNote:     "FC01",
	DocTypeDispatchAdvice: "T001",
}

// =============================================================================
// Catálogo 06 - Tipo de documento de identidad
// =============================================================================

const (
	IdentityTypeNonDomiciled = "0" // Doc. trib. no dom. sin RUC
	IdentityTypeDNI          = "1"
	IdentityTypeForeignCard  = "4" // Carnet de extranjería
	IdentityTypeRUC          = "6"
	IdentityTypePassport     = "7"
)

// ValidIdentityTypes códigos de identidad aceptados para clientes y destinatarios.
var ValidIdentityTypes = map[string]bool{
	IdentityTypeNonDomiciled: true,
	IdentityTypeDNI:          true,
	IdentityTypeForeignCard:  true,
	IdentityTypeRUC:          true,
	IdentityTypePassport:     true,
	"A":                      true, // Cédula diplomática
	"B":                      true, // Doc. identidad país residencia
}

// =============================================================================
// Catálogo 05 - Tributos
// =============================================================================

const (
	TaxSchemeIGV      = "1000"
	TaxSchemeIGVName  = "IGV"
	TaxSchemeIGVType  = "VAT"
	TaxSchemeExo      = "9997"
	TaxSchemeExoName  = "EXO"
	TaxSchemeIna      = "9998"
	TaxSchemeInaName  = "INA"
	TaxSchemeFreeType = "FRE"
)

// =============================================================================
// Catálogo 07 - Tipo de afectación del IGV
// =============================================================================

const (
	AffectationTaxed      = "10" // Gravado - Operación onerosa
	AffectationExonerated = "20" // Exonerado - Operación onerosa
	AffectationUnaffected = "30" // Inafecto - Operación onerosa
)

// IsTaxedAffectation indica si el código de afectación genera IGV.
func IsTaxedAffectation(code string) bool {
	return len(code) == 2 && code[0] == '1'
}

// =============================================================================
// Catálogo 03 - Unidades de medida (UN/ECE rec 20)
// =============================================================================

const (
	UnitProduct  = "NIU" // Unidad (bienes)
	UnitService  = "ZZ"  // Unidad (servicios)
	UnitKilogram = "KGM"
	UnitBox      = "BX"
	UnitLitre    = "LTR"
)

// =============================================================================
// Catálogo 09 - Motivos de nota de crédito
// =============================================================================

// CreditNoteReasons códigos de tipo de nota de crédito.
var CreditNoteReasons = map[string]string{
	"01": "Anulación de la operación",
	"02": "Anulación por error en el RUC",
	"03": "Corrección por error en la descripción",
	"04": "Descuento global",
	"05": "Descuento por ítem",
	"06": "Devolución total",
	"07": "Devolución por ítem",
	"08": "Bonificación",
	"09": "Disminución en el valor",
	"10": "Otros conceptos",
	"13": "Ajustes - montos y/o fechas de pago",
}

// =============================================================================
// Catálogo 20 - Motivos de traslado / Catálogo 18 - Modalidad de traslado
// =============================================================================

// TransferReasons motivos de traslado de la guía de remisión.
var TransferReasons = map[string]string{
	"01": "Venta",
	"02": "Compra",
	"04": "Traslado entre establecimientos de la misma empresa",
	"08": "Importación",
	"09": "Exportación",
	"13": "Otros",
	"14": "Venta sujeta a confirmación del comprador",
	"18": "Traslado emisor itinerante CP",
}

const (
	TransportModePublic  = "01" // Transporte público
	TransportModePrivate = "02" // Transporte privado
)

// =============================================================================
// Catálogo 51 - Tipo de operación
// =============================================================================

const OperationTypeInternalSale = "0101" // Venta interna

// =============================================================================
// Catálogo 16 - Tipo de precio de venta unitario
// =============================================================================

const PriceTypeUnitWithTax = "01" // Precio unitario (incluye el IGV)

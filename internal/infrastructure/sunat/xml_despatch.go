package sunat

import (
	"strconv"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// buildDespatchAdvice guía de remisión remitente (09). Sin Id en la raíz: la
// Reference de la firma usa URI vacía (documento completo).
func buildDespatchAdvice(doc *entity.DocumentRequest, d entity.DispatchAdvice) node {
	rel := d.RelatedDocument
	issuer := rel.IssuerRUC
	if issuer == "" {
		issuer = doc.Supplier.RUC
	}
	children := []node{
		ublExtensions(),
		cbc("UBLVersionID", ublVersion),
		cbc("CustomizationID", customizationID),
		cbc("ID", doc.ID()),
		cbc("IssueDate", doc.IssueDate),
		cbc("IssueTime", doc.IssueTime),
		cbc("DespatchAdviceTypeCode", sunat.DocTypeDispatchAdvice,
			attr("listAgencyName", catalogAgency),
			attr("listName", "Tipo de Documento"),
			attr("listURI", "urn:pe:gob:sunat:cpe:see:gem:catalogos:catalogo01"),
		),
	}
	if d.Note != "" {
		children = append(children, cbc("Note", d.Note))
	}
	children = append(children,
		cac("AdditionalDocumentReference",
			cbc("ID", rel.ID()),
			cbc("DocumentTypeCode", rel.DocumentTypeCode,
				attr("listAgencyName", catalogAgency),
				attr("listName", "Documento relacionado al transporte"),
			),
			cbc("DocumentType", sunat.DocumentTypeNames[rel.DocumentTypeCode]),
			cac("IssuerParty",
				cac("PartyIdentification", cbc("ID", issuer, attr("schemeID", sunat.IdentityTypeRUC))),
			),
		),
		signatureReference(doc.Supplier),
		despatchParty("DespatchSupplierParty", sunat.IdentityTypeRUC, doc.Supplier.RUC, doc.Supplier.LegalName),
		despatchParty("DeliveryCustomerParty", d.Consignee.DocType, d.Consignee.DocNumber, d.Consignee.LegalName),
		shipment(d.Shipment, d.Carrier),
	)
	for i, item := range d.Items {
		line := []node{
			cbc("ID", strconv.Itoa(i+1)),
			cbc("DeliveredQuantity", formatQuantity(item.Quantity), attr("unitCode", item.UnitCode)),
			cac("OrderLineReference", cbc("LineID", strconv.Itoa(i+1))),
		}
		desc := []node{cbc("Description", item.Description)}
		if item.Code != "" {
			desc = append(desc, cac("SellersItemIdentification", cbc("ID", item.Code)))
		}
		line = append(line, cac("Item", desc...))
		children = append(children, cac("DespatchLine", line...))
	}
	return el("DespatchAdvice", children...).withAttrs(rootAttrs(NsDespatchAdvice, "")...)
}

func despatchParty(wrapper, docType, docNumber, name string) node {
	return cac(wrapper, cac("Party",
		cac("PartyIdentification", cbc("ID", docNumber, attr("schemeID", docType))),
		cac("PartyLegalEntity", cbc("RegistrationName", name)),
	))
}

// shipment datos de traslado. Transporte público informa al transportista;
// transporte privado informa conductor y vehículo.
func shipment(s entity.Shipment, c entity.Carrier) node {
	stage := []node{
		cbc("TransportModeCode", s.TransportModeCode,
			attr("listAgencyName", catalogAgency),
			attr("listName", "Modalidad de traslado"),
		),
		cac("TransitPeriod", cbc("StartDate", s.StartDate)),
	}
	switch s.TransportModeCode {
	case sunat.TransportModePublic:
		legal := []node{cbc("RegistrationName", c.LegalName)}
		if c.MTCRegistration != "" {
			legal = append(legal, cbc("CompanyID", c.MTCRegistration))
		}
		docType := c.DocType
		if docType == "" {
			docType = sunat.IdentityTypeRUC
		}
		stage = append(stage, cac("CarrierParty",
			cac("PartyIdentification", cbc("ID", c.DocNumber, attr("schemeID", docType))),
			cac("PartyLegalEntity", legal...),
		))
	case sunat.TransportModePrivate:
		driver := []node{
			cbc("ID", c.DriverDocNumber, attr("schemeID", c.DriverDocType)),
			cbc("FirstName", c.DriverName),
			cbc("JobTitle", "Principal"),
		}
		if c.DriverLicense != "" {
			driver = append(driver, cac("IdentityDocumentReference", cbc("ID", c.DriverLicense)))
		}
		stage = append(stage, cac("DriverPerson", driver...))
	}

	children := []node{
		cbc("ID", "SUNAT_Envio"),
		cbc("HandlingCode", s.TransferReasonCode,
			attr("listAgencyName", catalogAgency),
			attr("listName", "Motivo de traslado"),
		),
	}
	if s.TransferReason != "" {
		children = append(children, cbc("HandlingInstructions", s.TransferReason))
	}
	children = append(children,
		cbc("GrossWeightMeasure", s.GrossWeight.StringFixed(3), attr("unitCode", s.WeightUnitCode)),
		cac("ShipmentStage", stage...),
		cac("Delivery",
			cac("DeliveryAddress",
				cbc("ID", s.Destination.Ubigeo, attr("schemeAgencyName", "PE:INEI"), attr("schemeName", "Ubigeos")),
				cac("AddressLine", cbc("Line", s.Destination.Line)),
			),
			cac("Despatch",
				cac("DespatchAddress",
					cbc("ID", s.Origin.Ubigeo, attr("schemeAgencyName", "PE:INEI"), attr("schemeName", "Ubigeos")),
					cac("AddressLine", cbc("Line", s.Origin.Line)),
				),
			),
		),
	)
	if c.VehiclePlate != "" {
		children = append(children, cac("TransportHandlingUnit",
			cac("TransportEquipment", cbc("ID", c.VehiclePlate)),
		))
	}
	return cac("Shipment", children...)
}

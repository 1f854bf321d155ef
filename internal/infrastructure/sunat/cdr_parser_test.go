package sunat_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	infra "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/sunattest"
)

func TestParseReceipt_Accepted(t *testing.T) {
	raw := &entity.RawResponse{ApplicationResponse: sunattest.CDR("F001-123", "0", "La Factura numero F001-123, ha sido aceptada")}

	r, diag := infra.ParseReceipt(raw)
	assert.NoError(t, diag)
	assert.True(t, r.Accepted)
	assert.Equal(t, "0", r.Code)
	assert.Equal(t, "La Factura numero F001-123, ha sido aceptada", r.Description)
	assert.Equal(t, "F001-123", r.ReferenceID)
	assert.Len(t, r.Notes, 1)
	assert.NotEmpty(t, r.Raw)
}

func TestParseReceipt_Rejected(t *testing.T) {
	raw := &entity.RawResponse{ApplicationResponse: sunattest.CDR("F001-123", "2335", "El documento electrónico ingresado ha sido alterado")}

	r, diag := infra.ParseReceipt(raw)
	assert.NoError(t, diag)
	assert.False(t, r.Accepted)
	assert.Equal(t, "2335", r.Code)
}

func TestParseReceipt_Latin1(t *testing.T) {
	xmlData := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?>`+
		`<ApplicationResponse xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">`+
		`<cbc:ResponseCode>0</cbc:ResponseCode><cbc:Description>Aceptada con observaci`), 0xF3)
	xmlData = append(xmlData, []byte(`n</cbc:Description></ApplicationResponse>`)...)

	r, diag := infra.ParseReceipt(&entity.RawResponse{ApplicationResponse: sunattest.ZipBase64("F001-1", xmlData)})
	assert.NoError(t, diag)
	assert.True(t, r.Accepted)
	assert.Equal(t, "Aceptada con observación", r.Description)
}

func TestParseReceipt_PlainXMLWithoutZip(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(sunattest.CDRXML("B001-7", "0", "ACEPTADO"))
	r, diag := infra.ParseReceipt(&entity.RawResponse{ApplicationResponse: encoded})
	assert.NoError(t, diag)
	assert.True(t, r.Accepted)
}

// Ninguna entrada malformada debe provocar pánico ni un receipt aceptado.
func TestParseReceipt_NeverThrows(t *testing.T) {
	cases := map[string]*entity.RawResponse{
		"nil":            nil,
		"vacío":          {},
		"base64 inválido": {ApplicationResponse: "%%%no-base64%%%"},
		"no es zip":      {ApplicationResponse: base64.StdEncoding.EncodeToString([]byte("PK basura"))},
		"xml roto":       {ApplicationResponse: sunattest.ZipBase64("X", []byte("<ApplicationResponse><cbc:ResponseCode>0"))},
		"sin código":     {ApplicationResponse: sunattest.ZipBase64("X", []byte(`<ApplicationResponse><Description>algo</Description></ApplicationResponse>`))},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var (
				r    entity.Receipt
				diag error
			)
			require.NotPanics(t, func() { r, diag = infra.ParseReceipt(raw) })
			assert.False(t, r.Accepted)
			assert.Equal(t, entity.UnknownReceiptValue, r.Code)
			assert.NotEmpty(t, r.Description)

			var parseErr *domain.ReceiptParseError
			assert.ErrorAs(t, diag, &parseErr)
		})
	}
}

func TestParseReceipt_TicketOnly(t *testing.T) {
	r, diag := infra.ParseReceipt(&entity.RawResponse{Protocol: entity.ProtocolREST, Ticket: "1234567"})
	assert.Error(t, diag)
	assert.False(t, r.Accepted)
	assert.Contains(t, r.Description, "1234567")
}

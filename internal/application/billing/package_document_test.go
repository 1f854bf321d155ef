package billing_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	infra "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer/signertest"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/sunattest"
)

func TestPackageDocument_ZipFirmadoVerificable(t *testing.T) {
	pair := signertest.NewPEMPair(t, "EMPRESA DEMO")
	material := pair.Material(t)
	svc := billing.NewTransmissionService(billing.Deps{
		Builder: infra.NewXMLBuilderService(),
		Signer:  signer.NewDigitalSignatureService(),
	}, billing.Options{}, zerolog.Nop())

	archive, err := svc.PackageDocument(invoiceRaw(), material)
	require.NoError(t, err)

	stem := sunattest.SupplierRUC + "-01-F001-123"
	assert.Equal(t, stem+".zip", archive.FileName)
	assert.Equal(t, stem+".xml", archive.EntryName)

	name, xmlBytes, err := infra.Unpack(archive.Content)
	require.NoError(t, err)
	assert.Equal(t, stem+".xml", name)

	_, err = signer.Verify(xmlBytes, material.Certificate)
	assert.NoError(t, err, "la firma del ZIP debe verificar con el certificado del emisor")

	again, err := svc.PackageDocument(invoiceRaw(), material)
	require.NoError(t, err)
	assert.Equal(t, archive.Content, again.Content, "el ZIP debe ser determinístico")
}

func TestPackageDocument_ValidacionAntesDeFirmar(t *testing.T) {
	svc := billing.NewTransmissionService(billing.Deps{
		Builder: infra.NewXMLBuilderService(),
		Signer:  signer.NewDigitalSignatureService(),
	}, billing.Options{}, zerolog.Nop())

	raw := invoiceRaw()
	raw.LineItems = nil
	_, err := svc.PackageDocument(raw, signertest.NewPEMPair(t, "X").Material(t))
	assert.Equal(t, domain.TagValidation, domain.TagOf(err))
}

package sunat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infra "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/sunattest"
)

func TestCanonicalize_AttributeOrderAndWhitespace(t *testing.T) {
	a := `<?xml version="1.0"?><r xmlns="urn:x" b="2" a="1"><c   z="9"  y="8"/></r>`
	b := "<r a=\"1\" xmlns=\"urn:x\"   b=\"2\"><c y=\"8\" z=\"9\"></c></r>"

	ca, err := infra.Canonicalize([]byte(a))
	require.NoError(t, err)
	cb, err := infra.Canonicalize([]byte(b))
	require.NoError(t, err)

	assert.Equal(t, string(ca), string(cb))
	assert.Equal(t, `<r xmlns="urn:x" a="1" b="2"><c y="8" z="9"></c></r>`, string(ca))
}

func TestCanonicalize_DropsUnusedNamespaces(t *testing.T) {
	in := `<r xmlns:u="urn:unused" xmlns:p="urn:p"><p:x/></r>`
	out, err := infra.Canonicalize([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, `<r><p:x xmlns:p="urn:p"></p:x></r>`, string(out))
}

func TestDigest_DeterministicAndSensitive(t *testing.T) {
	unsigned, err := infra.NewXMLBuilderService().Build(sunattest.Invoice())
	require.NoError(t, err)

	d1, err := infra.Digest(unsigned.XML)
	require.NoError(t, err)
	d2, err := infra.Digest(unsigned.XML)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 44, "SHA-256 en base64")

	other := sunattest.Invoice()
	other.Correlative = "124"
	changed, err := infra.NewXMLBuilderService().Build(other)
	require.NoError(t, err)
	d3, err := infra.Digest(changed.XML)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}

func TestDigest_InvalidXML(t *testing.T) {
	_, err := infra.Digest([]byte("<sin-cerrar>"))
	assert.Error(t, err)
}

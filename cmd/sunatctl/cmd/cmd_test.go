package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/cmd/sunatctl/cmd"
	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	infrasunat "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer/signertest"
)

const facturaJSON = `{
	"documentKind": "01",
	"series": "F001",
	"correlative": "123",
	"issueDate": "2024-05-10",
	"issueTime": "10:30:00",
	"currency": "PEN",
	"supplier": {"ruc": "20100000001", "legalName": "EMPRESA DEMO S.A.C.", "address": {"ubigeo": "150101", "line": "AV. AREQUIPA 123"}},
	"customer": {"docType": "6", "docNumber": "20100070970", "legalName": "CLIENTE CORPORATIVO S.A."},
	"lineItems": [{"description": "PRODUCTO DE PRUEBA", "quantity": 1, "unitPrice": "100"}]
}`

func TestBuildThenVerify(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := signertest.NewPEMPair(t, "EMPRESA DEMO").WriteFiles(t, dir)
	docPath := filepath.Join(dir, "factura.json")
	require.NoError(t, os.WriteFile(docPath, []byte(facturaJSON), 0o600))
	outDir := filepath.Join(dir, "out")

	var out bytes.Buffer
	err := cmd.ExecuteArgs([]string{"build", docPath, "--cert", certPath, "--key", keyPath, "-o", outDir}, &out)
	require.NoError(t, err)

	zipPath := filepath.Join(outDir, "20100000001-01-F001-123.zip")
	assert.Equal(t, zipPath, strings.TrimSpace(out.String()))
	require.FileExists(t, zipPath)

	out.Reset()
	err = cmd.ExecuteArgs([]string{"verify", zipPath, "--cert", certPath}, &out)
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, true, results[0]["valid"])
	assert.Contains(t, results[0]["subject"], "EMPRESA DEMO")
}

func TestVerify_DetectaAlteracion(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := signertest.NewPEMPair(t, "EMPRESA DEMO").WriteFiles(t, dir)
	docPath := filepath.Join(dir, "factura.json")
	require.NoError(t, os.WriteFile(docPath, []byte(facturaJSON), 0o600))

	var out bytes.Buffer
	require.NoError(t, cmd.ExecuteArgs([]string{"build", docPath, "--cert", certPath, "--key", keyPath, "-o", dir}, &out))

	content, err := os.ReadFile(filepath.Join(dir, "20100000001-01-F001-123.zip"))
	require.NoError(t, err)
	_, xmlBytes, err := infrasunat.Unpack(content)
	require.NoError(t, err)

	tampered := bytes.Replace(xmlBytes, []byte("PRODUCTO DE PRUEBA"), []byte("PRODUCTO ALTERADO"), 1)
	xmlPath := filepath.Join(dir, "alterado.xml")
	require.NoError(t, os.WriteFile(xmlPath, tampered, 0o600))

	out.Reset()
	err = cmd.ExecuteArgs([]string{"verify", xmlPath, "--cert", ""}, &out)
	assert.Error(t, err, "un XML alterado no debe verificar")
	assert.Contains(t, out.String(), `"valid": false`)
}

func TestBuild_DocumentoInvalido(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := signertest.NewPEMPair(t, "EMPRESA DEMO").WriteFiles(t, dir)
	docPath := filepath.Join(dir, "vacia.json")
	require.NoError(t, os.WriteFile(docPath, []byte(`{"documentKind":"01","series":"F001","correlative":"1","supplier":{"ruc":"20100000001"}}`), 0o600))

	err := cmd.ExecuteArgs([]string{"build", docPath, "--cert", certPath, "--key", keyPath, "-o", dir}, &bytes.Buffer{})
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "20100000001-01-F001-1.zip"))
}

// ── send ─────────────────────────────────────────────────────────────────────

type countingSender struct {
	calls atomic.Int32
}

func (s *countingSender) SendDocument(_ context.Context, c billing.SendCommand) (*billing.SendResult, error) {
	s.calls.Add(1)
	return &billing.SendResult{TransmissionID: "t-" + string(c.Document.Correlative), Status: entity.TransmissionSent}, nil
}

func TestSendFiles_ErroresPorDocumento(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "factura.json")
	require.NoError(t, os.WriteFile(ok, []byte(facturaJSON), 0o600))
	missing := filepath.Join(dir, "no-existe.json")

	sender := &countingSender{}
	outcomes, err := cmd.SendFiles(context.Background(), sender, []string{ok, missing}, 2)
	require.NoError(t, err, "un documento fallido no corta el lote")
	require.Len(t, outcomes, 2)
	require.NotNil(t, outcomes[0].Result)
	assert.Equal(t, "t-123", outcomes[0].Result.TransmissionID)
	assert.Equal(t, domain.TagBadRequest, outcomes[1].Code)
	assert.EqualValues(t, 1, sender.calls.Load())
}

func TestSendFiles_CancelacionSePropaga(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "factura.json")
	require.NoError(t, os.WriteFile(path, []byte(facturaJSON), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &countingSender{}
	outcomes, err := cmd.SendFiles(ctx, sender, []string{path, path, path}, 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sender.calls.Load(), "con el contexto cancelado no se envía nada")
	for _, o := range outcomes {
		assert.NotEmpty(t, o.Error)
	}
}

// Package signertest genera material de firma autofirmado para pruebas.
package signertest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// PEMPair certificado y llave en PEM.
type PEMPair struct {
	CertPEM []byte
	KeyPEM  []byte
}

// NewPEMPair genera una llave RSA 2048 y un certificado autofirmado vigente un año.
func NewPEMPair(t testing.TB, commonName string) PEMPair {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generar llave: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName, Organization: []string{"PRUEBAS SAC"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("crear certificado: %v", err)
	}
	return PEMPair{
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}),
	}
}

// Material SigningMaterial listo para usar.
func (p PEMPair) Material(t testing.TB) sunat.SigningMaterial {
	t.Helper()
	block, _ := pem.Decode(p.CertPEM)
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parsear certificado: %v", err)
	}
	keyBlock, _ := pem.Decode(p.KeyPEM)
	key, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	if err != nil {
		t.Fatalf("parsear llave: %v", err)
	}
	return sunat.SigningMaterial{PrivateKey: key, Certificate: cert, CertificatePEM: p.CertPEM}
}

// WriteFiles escribe cert.pem y key.pem en dir y devuelve sus rutas.
func (p PEMPair) WriteFiles(t testing.TB, dir string) (certPath, keyPath string) {
	t.Helper()
	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certPath, p.CertPEM, 0o600); err != nil {
		t.Fatalf("escribir certificado: %v", err)
	}
	if err := os.WriteFile(keyPath, p.KeyPEM, 0o600); err != nil {
		t.Fatalf("escribir llave: %v", err)
	}
	return certPath, keyPath
}

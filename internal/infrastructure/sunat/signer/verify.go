package signer

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// VerifyResult datos del firmante de un XML verificado.
type VerifyResult struct {
	Subject   string
	Serial    string
	NotAfter  time.Time
	Reference string
}

// Verify valida la firma enveloped del XML: digest de la Reference y SignatureValue.
// Con trusted nil se confía en el certificado embebido en KeyInfo (solo integridad).
func Verify(signedXML []byte, trusted *x509.Certificate) (*VerifyResult, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signedXML); err != nil {
		return nil, fmt.Errorf("verificar: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("verificar: documento sin raíz")
	}
	if trusted == nil {
		cert, err := embeddedCertificate(root)
		if err != nil {
			return nil, err
		}
		trusted = cert
	}

	ctx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{trusted},
	})
	ctx.IdAttribute = "Id"
	if _, err := ctx.Validate(root); err != nil {
		return nil, fmt.Errorf("verificar: firma inválida: %w", err)
	}

	ref := ""
	if r := root.FindElement("//ds:Reference"); r != nil {
		ref = r.SelectAttrValue("URI", "")
	}
	return &VerifyResult{
		Subject:   trusted.Subject.String(),
		Serial:    trusted.SerialNumber.Text(16),
		NotAfter:  trusted.NotAfter,
		Reference: ref,
	}, nil
}

func embeddedCertificate(root *etree.Element) (*x509.Certificate, error) {
	el := root.FindElement("//ds:X509Certificate")
	if el == nil {
		return nil, fmt.Errorf("verificar: el XML no trae ds:X509Certificate")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(el.Text()), ""))
	if err != nil {
		return nil, fmt.Errorf("verificar: certificado no es base64: %w", err)
	}
	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		return nil, fmt.Errorf("verificar: parsear certificado: %w", err)
	}
	return cert, nil
}

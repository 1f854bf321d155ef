// Servicio de firma XML-DSig enveloped (RSA-SHA256) para comprobantes SUNAT.
// Inyecta <ds:Signature> en el ext:ExtensionContent vacío que reserva el builder.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// DigitalSignatureService implementa sunat.Signer.
type DigitalSignatureService struct {
	canonicalizer dsig.Canonicalizer
}

// NewDigitalSignatureService crea el servicio.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{
		canonicalizer: dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList(""),
	}
}

// Sign firma SignedInfo con la llave del material y empalma la firma en el placeholder.
// digest es el SHA-256 (base64) de la forma canónica del documento sin firmar.
func (s *DigitalSignatureService) Sign(xmlBytes []byte, digest string, m sunat.SigningMaterial, referenceURI string) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, &domain.SigningError{Reason: "XML vacío"}
	}
	if m.PrivateKey == nil {
		return nil, &domain.SigningError{Reason: "llave privada no cargada"}
	}
	if digest == "" {
		return nil, &domain.SigningError{Reason: "digest vacío"}
	}
	certText, err := CertificateText(m)
	if err != nil {
		return nil, &domain.SigningError{Reason: "certificado", Err: err}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, &domain.SigningError{Reason: "parsear XML", Err: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &domain.SigningError{Reason: "documento sin raíz"}
	}
	placeholder := findPlaceholder(root)
	if placeholder == nil {
		return nil, &domain.SigningError{Reason: "no se encontró ext:ExtensionContent vacío para la firma"}
	}

	// 1) SignedInfo con la Reference al documento.
	signedInfo := buildSignedInfo(digest, referenceURI)

	// 2) RSA-SHA256 sobre la forma canónica de SignedInfo. La copia declara ds
	// porque fuera del documento no hereda el namespace de la raíz.
	detached := signedInfo.Copy()
	detached.CreateAttr("xmlns:ds", NamespaceDS)
	canonical, err := s.canonicalizer.Canonicalize(detached)
	if err != nil {
		return nil, &domain.SigningError{Reason: "c14n de SignedInfo", Err: err}
	}
	hash := sha256.Sum256(canonical)
	signatureValue, err := rsa.SignPKCS1v15(rand.Reader, m.PrivateKey, crypto.SHA256, hash[:])
	if err != nil {
		return nil, &domain.SigningError{Reason: "firmar SignedInfo", Err: err}
	}

	// 3) ds:Signature = SignedInfo + SignatureValue + KeyInfo.
	signature := etree.NewElement("ds:Signature")
	signature.CreateAttr("Id", sunat.SignatureID)
	signature.AddChild(signedInfo)
	signature.CreateElement("ds:SignatureValue").SetText(base64.StdEncoding.EncodeToString(signatureValue))
	signature.CreateElement("ds:KeyInfo").
		CreateElement("ds:X509Data").
		CreateElement("ds:X509Certificate").SetText(certText)

	// 4) Empalme en el placeholder.
	placeholder.AddChild(signature)

	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, &domain.SigningError{Reason: "serializar XML firmado", Err: err}
	}
	return out.Bytes(), nil
}

func buildSignedInfo(digest, referenceURI string) *etree.Element {
	signedInfo := etree.NewElement("ds:SignedInfo")
	signedInfo.CreateElement("ds:CanonicalizationMethod").CreateAttr("Algorithm", AlgExcC14N)
	signedInfo.CreateElement("ds:SignatureMethod").CreateAttr("Algorithm", AlgRSASHA256)

	ref := signedInfo.CreateElement("ds:Reference")
	ref.CreateAttr("URI", referenceURI)
	transforms := ref.CreateElement("ds:Transforms")
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", TransformEnveloped)
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", AlgExcC14N)
	ref.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	ref.CreateElement("ds:DigestValue").SetText(digest)
	return signedInfo
}

// findPlaceholder primer ext:ExtensionContent vacío dentro de ext:UBLExtensions.
func findPlaceholder(root *etree.Element) *etree.Element {
	for _, exts := range root.ChildElements() {
		if exts.Tag != tagUBLExtensions {
			continue
		}
		for _, ext := range exts.ChildElements() {
			if ext.Tag != tagUBLExtension {
				continue
			}
			for _, content := range ext.ChildElements() {
				if content.Tag == tagExtensionContent && len(content.ChildElements()) == 0 {
					return content
				}
			}
		}
	}
	return nil
}

var _ sunat.Signer = (*DigitalSignatureService)(nil)

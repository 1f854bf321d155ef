// Package sunat: interfaz para firma digital de comprobantes XML (XML-DSig enveloped, SUNAT).

package sunat

import (
	"crypto/rsa"
	"crypto/x509"
)

// SigningMaterial llave privada y certificado de un par (empresa, ambiente).
// Se carga por intento de envío y nunca se persiste ni se registra en logs.
type SigningMaterial struct {
	PrivateKey     *rsa.PrivateKey
	Certificate    *x509.Certificate
	CertificatePEM []byte
}

// Signer firma un XML UBL y devuelve el documento con ds:Signature en el UBLExtensions.
type Signer interface {
	// Sign recibe el XML sin firma, su digest (base64, C14N exclusivo + SHA-256),
	// el material de firma y la URI de la Reference ("" o "#Id").
	Sign(xmlBytes []byte, digest string, material SigningMaterial, referenceURI string) ([]byte, error)
}

// SignatureID Id del ds:Signature, referido desde cac:Signature del comprobante.
const SignatureID = "SignatureSP"


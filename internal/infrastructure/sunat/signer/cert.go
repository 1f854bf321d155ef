// Carga del material de firma desde .p12 (PKCS#12) o par PEM.

package signer

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// LoadMaterial carga llave y certificado según la extensión de certPath:
// .p12/.pfx usa password; cualquier otra se trata como PEM (keyPath vacío = mismo archivo).
// Los errores nunca incluyen el contenido de la llave.
func LoadMaterial(certPath, keyPath, password string) (sunat.SigningMaterial, error) {
	if certPath == "" {
		return sunat.SigningMaterial{}, &domain.SigningError{Reason: "ruta de certificado vacía"}
	}
	switch strings.ToLower(filepath.Ext(certPath)) {
	case ".p12", ".pfx":
		return LoadFromP12(certPath, password)
	default:
		return LoadFromPEM(certPath, keyPath)
	}
}

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func LoadFromP12(path, password string) (sunat.SigningMaterial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sunat.SigningMaterial{}, &domain.SigningError{Reason: "leer p12", Err: err}
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return sunat.SigningMaterial{}, &domain.SigningError{Reason: "decodificar p12", Err: err}
	}
	key, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return sunat.SigningMaterial{}, &domain.SigningError{Reason: "la llave del p12 no es RSA"}
	}
	return sunat.SigningMaterial{
		PrivateKey:     key,
		Certificate:    cert,
		CertificatePEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}),
	}, nil
}

// LoadFromPEM carga certificado y llave desde archivos PEM (separados o combinados).
func LoadFromPEM(certPath, keyPath string) (sunat.SigningMaterial, error) {
	if keyPath == "" {
		keyPath = certPath
	}
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return sunat.SigningMaterial{}, &domain.SigningError{Reason: "leer certificado", Err: err}
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return sunat.SigningMaterial{}, &domain.SigningError{Reason: "leer llave privada", Err: err}
	}
	return ParsePEM(certPEM, keyPEM)
}

// ParsePEM arma el material desde bytes PEM (secret store o tests).
func ParsePEM(certPEM, keyPEM []byte) (sunat.SigningMaterial, error) {
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return sunat.SigningMaterial{}, &domain.SigningError{Reason: "llave o certificado PEM ilegible", Err: err}
	}
	key, ok := pair.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return sunat.SigningMaterial{}, &domain.SigningError{Reason: "la llave privada debe ser RSA"}
	}
	cert, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		return sunat.SigningMaterial{}, &domain.SigningError{Reason: "parsear certificado", Err: err}
	}
	return sunat.SigningMaterial{
		PrivateKey:     key,
		Certificate:    cert,
		CertificatePEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}),
	}, nil
}

// CertificateText base64 del certificado sin encabezados PEM ni saltos de línea.
// Con una cadena PEM se toma el primer bloque (certificado hoja).
func CertificateText(m sunat.SigningMaterial) (string, error) {
	if block, _ := pem.Decode(m.CertificatePEM); block != nil {
		return base64.StdEncoding.EncodeToString(block.Bytes), nil
	}
	if m.Certificate != nil {
		return base64.StdEncoding.EncodeToString(m.Certificate.Raw), nil
	}
	return "", fmt.Errorf("certificado no disponible")
}

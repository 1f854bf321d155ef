package sunat

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// excC14N canonicalizador exclusivo (xml-exc-c14n#) sin InclusiveNamespaces.
var excC14N = dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")

// Canonicalize devuelve la forma canónica exclusiva del elemento raíz del documento.
// Orden de atributos y declaraciones de namespace queda normalizado.
func Canonicalize(xmlBytes []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("sunat: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("sunat: documento sin raíz")
	}
	return CanonicalizeElement(root)
}

// CanonicalizeElement canonicaliza una copia; el canonicalizador muta el árbol que recibe.
func CanonicalizeElement(el *etree.Element) ([]byte, error) {
	out, err := excC14N.Canonicalize(el.Copy())
	if err != nil {
		return nil, fmt.Errorf("sunat: c14n exclusivo: %w", err)
	}
	return out, nil
}

// Digest SHA-256 en base64 de la forma canónica del documento sin firmar.
func Digest(xmlBytes []byte) (string, error) {
	canonical, err := Canonicalize(xmlBytes)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

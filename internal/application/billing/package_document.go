package billing

import (
	"fmt"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	infrasunat "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// PackageDocument arma el ZIP firmado de un documento sin persistir ni transmitir.
// El documento debe traer serie, correlativo y RUC del emisor.
func (s *TransmissionService) PackageDocument(raw domsunat.RawDocument, material sunat.SigningMaterial) (*entity.ArchiveEntry, error) {
	doc, err := s.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	if err := domsunat.ValidateDocument(doc, domsunat.ValidateOptions{StrictRUC: s.opts.StrictRUC}); err != nil {
		return nil, err
	}
	unsigned, err := s.builder.Build(doc)
	if err != nil {
		return nil, fmt.Errorf("xml-build: %w", err)
	}
	digest, err := infrasunat.Digest(unsigned.XML)
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}
	signedXML, err := s.signer.Sign(unsigned.XML, digest, material, unsigned.ReferenceURI)
	if err != nil {
		return nil, err
	}
	stem := domsunat.FileStem(doc.Supplier.RUC, doc.Kind().TypeCode(), doc.Series, doc.Correlative)
	return infrasunat.Pack(entity.SignedDocument{XML: signedXML, FileStem: stem})
}

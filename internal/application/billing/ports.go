package billing

import (
	"context"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	infrasunat "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// DocumentBuilder arma el XML UBL sin firma.
type DocumentBuilder interface {
	Build(doc *entity.DocumentRequest) (*infrasunat.UnsignedDocument, error)
}

// EndpointResolver elige protocolo y URL según ambiente y tipo de documento.
type EndpointResolver interface {
	Resolve(env entity.Environment, docTypeCode, fileStem string) (infrasunat.Endpoint, error)
}

// DocumentTransmitter envía el ZIP a SUNAT. No reintenta.
type DocumentTransmitter interface {
	Send(ctx context.Context, archive *entity.ArchiveEntry, dest infrasunat.Endpoint, creds *entity.Credentials) (*entity.RawResponse, error)
}

// CredentialResolver obtiene las credenciales de (empresa, ambiente). Se llama una vez
// por intento y el resultado no se comparte entre empresas.
type CredentialResolver interface {
	Resolve(ctx context.Context, companyID string, env entity.Environment) (*entity.Credentials, error)
}

// MaterialLoader carga llave y certificado a partir de las rutas de las credenciales.
type MaterialLoader interface {
	Load(creds *entity.Credentials) (sunat.SigningMaterial, error)
}

// ArchiveStore guarda el ZIP enviado y devuelve su ubicación.
type ArchiveStore interface {
	Save(ctx context.Context, companyID string, archive *entity.ArchiveEntry) (string, error)
}

// EventPublisher publica el resultado de cada intento.
type EventPublisher interface {
	Publish(ctx context.Context, event entity.TransmissionEvent) error
}

// SequenceRunner serializa la asignación de correlativos por clave (empresa, tipo).
type SequenceRunner interface {
	RunSequence(ctx context.Context, lockKey string, fn func(repo repository.TransmissionRepository) error) error
}

// ProfileReader datos tributarios de la empresa emisora.
type ProfileReader interface {
	GetProfile(ctx context.Context, companyID string) (*entity.CompanySunatProfile, error)
}

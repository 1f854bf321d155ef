package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// RepositoryCredentialResolver lee las credenciales desde sunat_credentials.
type RepositoryCredentialResolver struct {
	repo repository.CredentialsRepository
}

// NewRepositoryCredentialResolver crea el resolver.
func NewRepositoryCredentialResolver(repo repository.CredentialsRepository) *RepositoryCredentialResolver {
	return &RepositoryCredentialResolver{repo: repo}
}

// Resolve devuelve *domain.CredentialsError (envolviendo ErrCredentialsNotConfigured)
// si no hay fila o le falta usuario SOL o certificado.
func (r *RepositoryCredentialResolver) Resolve(ctx context.Context, companyID string, env entity.Environment) (*entity.Credentials, error) {
	creds, err := r.repo.GetCredentials(ctx, companyID, env)
	if err != nil {
		return nil, fmt.Errorf("leer credenciales SUNAT: %w", err)
	}
	if !creds.Complete() {
		return nil, &domain.CredentialsError{
			CompanyID:   companyID,
			Environment: string(env),
			Err:         domain.ErrCredentialsNotConfigured,
		}
	}
	return creds, nil
}

// StaticCredentialResolver credenciales fijas por ambiente (CLI y pruebas).
type StaticCredentialResolver map[entity.Environment]entity.Credentials

// Resolve devuelve una copia de las credenciales del ambiente.
func (s StaticCredentialResolver) Resolve(_ context.Context, companyID string, env entity.Environment) (*entity.Credentials, error) {
	creds, ok := s[env]
	if !ok || !creds.Complete() {
		return nil, &domain.CredentialsError{
			CompanyID:   companyID,
			Environment: string(env),
			Err:         domain.ErrCredentialsNotConfigured,
		}
	}
	creds.CompanyID = companyID
	creds.Environment = env
	return &creds, nil
}

// FileMaterialLoader carga .p12/.pfx o PEM desde disco en cada llamada.
type FileMaterialLoader struct{}

// Load ver signer.LoadMaterial.
func (FileMaterialLoader) Load(creds *entity.Credentials) (sunat.SigningMaterial, error) {
	return signer.LoadMaterial(creds.CertPath, creds.KeyPath, creds.CertPassword)
}

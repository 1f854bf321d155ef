package repository

import (
	"context"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// CredentialsRepository puerto de lectura de credenciales SUNAT por (empresa, ambiente).
type CredentialsRepository interface {
	// GetProfile devuelve nil, nil si la empresa no tiene perfil SUNAT.
	GetProfile(ctx context.Context, companyID string) (*entity.CompanySunatProfile, error)
	// GetCredentials devuelve nil, nil si no hay credenciales para el ambiente.
	GetCredentials(ctx context.Context, companyID string, env entity.Environment) (*entity.Credentials, error)
}

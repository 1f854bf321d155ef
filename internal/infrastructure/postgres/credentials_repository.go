package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
)

var _ repository.CredentialsRepository = (*CredentialsRepo)(nil)

// CredentialsRepo lectura de perfiles y credenciales SUNAT.
type CredentialsRepo struct {
	q Querier
}

// NewCredentialsRepository construye el adaptador.
func NewCredentialsRepository(q Querier) *CredentialsRepo {
	return &CredentialsRepo{q: q}
}

// GetProfile datos tributarios de la empresa.
func (r *CredentialsRepo) GetProfile(ctx context.Context, companyID string) (*entity.CompanySunatProfile, error) {
	query := `
		SELECT company_id, COALESCE(organization_id, ''), ruc, legal_name, preferred_environment
		FROM sunat_company_profiles WHERE company_id = $1`
	var (
		p   entity.CompanySunatProfile
		env string
	)
	err := r.q.QueryRow(ctx, query, companyID).Scan(&p.CompanyID, &p.OrganizationID, &p.RUC, &p.LegalName, &env)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sunat profile: %w", err)
	}
	p.PreferredEnvironment = entity.Environment(env)
	return &p, nil
}

// GetCredentials credenciales de (empresa, ambiente). Los secretos no se registran en logs.
func (r *CredentialsRepo) GetCredentials(ctx context.Context, companyID string, env entity.Environment) (*entity.Credentials, error) {
	query := `
		SELECT company_id, environment, ruc, sol_user, sol_password, cert_path,
		       COALESCE(key_path, ''), COALESCE(cert_password, ''),
		       COALESCE(client_id, ''), COALESCE(client_secret, '')
		FROM sunat_credentials WHERE company_id = $1 AND environment = $2`
	var (
		c      entity.Credentials
		envStr string
	)
	err := r.q.QueryRow(ctx, query, companyID, string(env)).Scan(
		&c.CompanyID, &envStr, &c.RUC, &c.SolUser, &c.SolPassword, &c.CertPath,
		&c.KeyPath, &c.CertPassword, &c.ClientID, &c.ClientSecret,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sunat credentials: %w", err)
	}
	c.Environment = entity.Environment(envStr)
	return &c, nil
}

// SaveProfile crea o actualiza el perfil tributario de la empresa.
func (r *CredentialsRepo) SaveProfile(ctx context.Context, p *entity.CompanySunatProfile) error {
	query := `
		INSERT INTO sunat_company_profiles (company_id, organization_id, ruc, legal_name, preferred_environment)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (company_id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			ruc = EXCLUDED.ruc,
			legal_name = EXCLUDED.legal_name,
			preferred_environment = EXCLUDED.preferred_environment,
			updated_at = NOW()`
	env := p.PreferredEnvironment
	if env == "" {
		env = entity.EnvironmentBeta
	}
	_, err := r.q.Exec(ctx, query, p.CompanyID, nullIfEmpty(p.OrganizationID), p.RUC, p.LegalName, string(env))
	if err != nil {
		return fmt.Errorf("save sunat profile: %w", err)
	}
	return nil
}

// SaveCredentials crea o reemplaza las credenciales de (empresa, ambiente).
// El perfil de la empresa debe existir.
func (r *CredentialsRepo) SaveCredentials(ctx context.Context, c *entity.Credentials) error {
	query := `
		INSERT INTO sunat_credentials (company_id, environment, ruc, sol_user, sol_password, cert_path,
		                               key_path, cert_password, client_id, client_secret)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (company_id, environment) DO UPDATE SET
			ruc = EXCLUDED.ruc,
			sol_user = EXCLUDED.sol_user,
			sol_password = EXCLUDED.sol_password,
			cert_path = EXCLUDED.cert_path,
			key_path = EXCLUDED.key_path,
			cert_password = EXCLUDED.cert_password,
			client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			updated_at = NOW()`
	_, err := r.q.Exec(ctx, query,
		c.CompanyID, string(c.Environment), c.RUC, c.SolUser, c.SolPassword, c.CertPath,
		nullIfEmpty(c.KeyPath), nullIfEmpty(c.CertPassword), nullIfEmpty(c.ClientID), nullIfEmpty(c.ClientSecret),
	)
	if err != nil {
		return fmt.Errorf("save sunat credentials (%s): %w", c.Environment, err)
	}
	return nil
}

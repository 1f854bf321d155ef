package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/postgres"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

var (
	credRUC          string
	credLegalName    string
	credPreferredEnv string
	credEnv          string
	credSolUser      string
	credSolPassword  string
	credCertPath     string
	credKeyPath      string
	credCertPassword string
	credClientID     string
	credClientSecret string
	credSkipCheck    bool
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Registrar perfil y credenciales SUNAT de una empresa",
	Long: `Crea o actualiza el perfil tributario de la empresa y sus credenciales para un ambiente.
Antes de guardar se comprueba que el certificado y la llave se puedan cargar.

Ejemplo:
  sunatctl credentials --company c1 --ruc 20100000001 --legal-name "EMPRESA DEMO S.A.C." \
    --env BETA --sol-user 20100000001MODDATOS --sol-password moddatos \
    --cert /secrets/c1/beta.pem --key /secrets/c1/beta.key`,
	Args: cobra.NoArgs,
	RunE: runCredentials,
}

func init() {
	rootCmd.AddCommand(credentialsCmd)

	f := credentialsCmd.Flags()
	f.StringVar(&companyID, "company", "", "ID de la empresa")
	f.StringVar(&organizationID, "org", "", "ID de la organización")
	f.StringVar(&credRUC, "ruc", "", "RUC del emisor")
	f.StringVar(&credLegalName, "legal-name", "", "Razón social")
	f.StringVar(&credPreferredEnv, "preferred-env", "BETA", "Ambiente preferido de la empresa")
	f.StringVar(&credEnv, "env", "BETA", "Ambiente de las credenciales (BETA o PROD)")
	f.StringVar(&credSolUser, "sol-user", "", "Usuario SOL (RUC + usuario)")
	f.StringVar(&credSolPassword, "sol-password", "", "Clave SOL")
	f.StringVar(&credCertPath, "cert", "", "Certificado PEM o .p12/.pfx")
	f.StringVar(&credKeyPath, "key", "", "Llave privada PEM")
	f.StringVar(&credCertPassword, "cert-password", "", "Password del .p12/.pfx")
	f.StringVar(&credClientID, "client-id", "", "Client ID OAuth2 (guía de remisión)")
	f.StringVar(&credClientSecret, "client-secret", "", "Client secret OAuth2")
	f.BoolVar(&credSkipCheck, "skip-cert-check", false, "No cargar el certificado antes de guardar")
	for _, name := range []string{"company", "ruc", "legal-name", "sol-user", "sol-password", "cert"} {
		_ = credentialsCmd.MarkFlagRequired(name)
	}
}

func runCredentials(cmd *cobra.Command, _ []string) error {
	env, ok := entity.ParseEnvironment(strings.TrimSpace(credEnv))
	if !ok {
		return fmt.Errorf("--env inválido %q", credEnv)
	}
	preferred, ok := entity.ParseEnvironment(strings.TrimSpace(credPreferredEnv))
	if !ok {
		return fmt.Errorf("--preferred-env inválido %q", credPreferredEnv)
	}
	if err := sunat.ValidateRUCFormat(credRUC); err != nil {
		return err
	}
	if !credSkipCheck {
		if _, err := signer.LoadMaterial(credCertPath, credKeyPath, credCertPassword); err != nil {
			return err
		}
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := postgres.NewPool(cmd.Context(), cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := postgres.NewCredentialsRepository(pool)
	if err := repo.SaveProfile(cmd.Context(), &entity.CompanySunatProfile{
		CompanyID:            companyID,
		OrganizationID:       organizationID,
		RUC:                  credRUC,
		LegalName:            credLegalName,
		PreferredEnvironment: preferred,
	}); err != nil {
		return err
	}
	if err := repo.SaveCredentials(cmd.Context(), &entity.Credentials{
		CompanyID:    companyID,
		Environment:  env,
		RUC:          credRUC,
		SolUser:      credSolUser,
		SolPassword:  credSolPassword,
		CertPath:     credCertPath,
		KeyPath:      credKeyPath,
		CertPassword: credCertPassword,
		ClientID:     credClientID,
		ClientSecret: credClientSecret,
	}); err != nil {
		return err
	}
	log.Info().Str("company_id", companyID).Str("environment", string(env)).Msg("credenciales SUNAT registradas")
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/bootstrap"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

var (
	retryUser string
	retryRole string
)

var retryCmd = &cobra.Command{
	Use:   "retry [transmission-id]",
	Short: "Reintentar una transmisión FAILED",
	Long: `Reenvía el payload almacenado de una transmisión fallida.
Por defecto opera como super_admin; --role org_admin exige --company y --org.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetry,
}

func init() {
	rootCmd.AddCommand(retryCmd)

	retryCmd.Flags().StringVar(&retryUser, "user", "sunatctl", "Usuario registrado en los logs")
	retryCmd.Flags().StringVar(&retryRole, "role", entity.RoleSuperAdmin, "super_admin u org_admin")
	retryCmd.Flags().StringVar(&companyID, "company", "", "Empresa del operador (org_admin)")
	retryCmd.Flags().StringVar(&organizationID, "org", "", "Organización del operador (org_admin)")
}

func runRetry(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	container, err := bootstrap.New(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	res, err := container.Service.RetryTransmission(cmd.Context(), billing.RetryCommand{
		TransmissionID: args[0],
		Caller: entity.Caller{
			UserID:         retryUser,
			CompanyID:      companyID,
			OrganizationID: organizationID,
			Role:           retryRole,
		},
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

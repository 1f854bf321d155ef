package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/facturador-sunat/internal/bootstrap"
)

var (
	nextType   string
	nextSeries string
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Siguiente serie y correlativo a emitir",
	Args:  cobra.NoArgs,
	RunE:  runNext,
}

func init() {
	rootCmd.AddCommand(nextCmd)

	nextCmd.Flags().StringVar(&companyID, "company", "", "ID de la empresa")
	nextCmd.Flags().StringVar(&nextType, "type", "01", "Tipo de documento (01, 03, 07, 09)")
	nextCmd.Flags().StringVar(&nextSeries, "series", "", "Serie (vacío = última emitida o la de por defecto)")
	_ = nextCmd.MarkFlagRequired("company")
}

func runNext(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	container, err := bootstrap.New(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	res, err := container.Service.NextCorrelative(cmd.Context(), companyID, nextType, nextSeries)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/bootstrap"
	"github.com/jhoicas/facturador-sunat/internal/domain"
)

var (
	companyID      string
	organizationID string
	environment    string
)

// sendOutcome resultado por archivo; un error no detiene al resto.
type sendOutcome struct {
	File   string              `json:"file"`
	Result *billing.SendResult `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
	Code   string              `json:"code,omitempty"`
}

var sendCmd = &cobra.Command{
	Use:   "send [documentos.json...]",
	Short: "Enviar comprobantes a SUNAT",
	Long: `Registra y envía cada documento con las credenciales de la empresa.
Los documentos se envían en paralelo (SUNAT_WORKER_POOL_SIZE) y el resultado se imprime en JSON.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&companyID, "company", "", "ID de la empresa emisora")
	sendCmd.Flags().StringVar(&organizationID, "org", "", "ID de la organización (opcional)")
	sendCmd.Flags().StringVar(&environment, "env", "", "BETA o PROD (vacío = preferido de la empresa)")
	_ = sendCmd.MarkFlagRequired("company")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	container, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	outcomes, waitErr := sendFiles(ctx, container.Service, args, cfg.SUNAT.WorkerPoolSize)
	if err := printJSON(cmd.OutOrStdout(), outcomes); err != nil {
		return err
	}
	if waitErr != nil {
		return fmt.Errorf("envío interrumpido: %w", waitErr)
	}
	for _, o := range outcomes {
		if o.Error != "" {
			return fmt.Errorf("uno o más documentos no se enviaron")
		}
	}
	return nil
}

// documentSender lo que send necesita del servicio de transmisión.
type documentSender interface {
	SendDocument(ctx context.Context, cmd billing.SendCommand) (*billing.SendResult, error)
}

// sendFiles envía cada archivo con a lo sumo limit envíos simultáneos. Los errores
// por documento quedan en su sendOutcome; solo la cancelación de ctx corta el lote
// y se devuelve como error. Los archivos no iniciados quedan marcados con ella.
func sendFiles(ctx context.Context, svc documentSender, paths []string, limit int) ([]sendOutcome, error) {
	outcomes := make([]sendOutcome, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = sendOutcome{File: path, Error: err.Error(), Code: domain.TagInternal}
				return err
			}
			outcomes[i] = sendFile(gctx, svc, path)
			return nil
		})
	}
	return outcomes, g.Wait()
}

func sendFile(ctx context.Context, svc documentSender, path string) sendOutcome {
	out := sendOutcome{File: path}
	doc, err := readDocument(path)
	if err != nil {
		out.Error, out.Code = err.Error(), domain.TagBadRequest
		return out
	}
	res, err := svc.SendDocument(ctx, billing.SendCommand{
		CompanyID:      companyID,
		OrganizationID: organizationID,
		Document:       doc,
		Environment:    environment,
	})
	if err != nil {
		out.Error, out.Code = err.Error(), domain.TagOf(err)
		return out
	}
	out.Result = res
	return out
}

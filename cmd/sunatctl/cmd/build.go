package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	infrasunat "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
)

var (
	certPath     string
	keyPath      string
	certPassword string
	outDir       string
	buildIGV     string
)

var buildCmd = &cobra.Command{
	Use:   "build [documentos.json...]",
	Short: "Firmar y empaquetar comprobantes sin enviarlos",
	Long: `Normaliza, valida, genera el XML UBL 2.1, lo firma y escribe el ZIP listo para SUNAT.
No usa base de datos ni red. Cada documento debe traer serie, correlativo y RUC del emisor.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&certPath, "cert", "", "Certificado PEM o .p12/.pfx")
	buildCmd.Flags().StringVar(&keyPath, "key", "", "Llave privada PEM (vacío = mismo archivo que --cert)")
	buildCmd.Flags().StringVar(&certPassword, "password", "", "Password del .p12/.pfx")
	buildCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directorio de salida")
	buildCmd.Flags().StringVar(&buildIGV, "igv", "18", "Tasa de IGV en porcentaje")
	_ = buildCmd.MarkFlagRequired("cert")
}

func runBuild(cmd *cobra.Command, args []string) error {
	rate, err := decimal.NewFromString(buildIGV)
	if err != nil {
		return fmt.Errorf("--igv inválido %q", buildIGV)
	}
	material, err := signer.LoadMaterial(certPath, keyPath, certPassword)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	svc := billing.NewTransmissionService(billing.Deps{
		Normalizer: domsunat.NewNormalizer(rate),
		Builder:    infrasunat.NewXMLBuilderService(),
		Signer:     signer.NewDigitalSignatureService(),
	}, billing.Options{}, zerolog.Nop())

	written := make([]string, len(args))
	g, _ := errgroup.WithContext(cmd.Context())
	g.SetLimit(4)
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			doc, err := readDocument(path)
			if err != nil {
				return err
			}
			archive, err := svc.PackageDocument(doc, material)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			dst := filepath.Join(outDir, archive.FileName)
			if err := os.WriteFile(dst, archive.Content, 0o644); err != nil {
				return err
			}
			written[i] = dst
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(written, "\n"))
	return nil
}

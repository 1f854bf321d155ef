package cmd

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	infrasunat "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
)

var trustedCert string

type verifyOutcome struct {
	File      string `json:"file"`
	Valid     bool   `json:"valid"`
	Subject   string `json:"subject,omitempty"`
	Serial    string `json:"serial,omitempty"`
	NotAfter  string `json:"notAfter,omitempty"`
	Reference string `json:"reference,omitempty"`
	Error     string `json:"error,omitempty"`
}

var verifyCmd = &cobra.Command{
	Use:   "verify [archivos...]",
	Short: "Verificar la firma XML-DSig de comprobantes",
	Long: `Verifica digest y SignatureValue de un XML firmado o del XML dentro de un ZIP.
Sin --cert solo se comprueba la integridad contra el certificado embebido.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&trustedCert, "cert", "", "Certificado PEM esperado del emisor")
}

func runVerify(cmd *cobra.Command, args []string) error {
	var trusted *x509.Certificate
	if trustedCert != "" {
		cert, err := readCertificate(trustedCert)
		if err != nil {
			return err
		}
		trusted = cert
	}

	outcomes := make([]verifyOutcome, 0, len(args))
	failed := false
	for _, path := range args {
		o := verifyFile(path, trusted)
		if !o.Valid {
			failed = true
		}
		outcomes = append(outcomes, o)
	}
	if err := printJSON(cmd.OutOrStdout(), outcomes); err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("firma inválida en uno o más archivos")
	}
	return nil
}

func verifyFile(path string, trusted *x509.Certificate) verifyOutcome {
	out := verifyOutcome{File: path}
	data, err := os.ReadFile(path)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		_, data, err = infrasunat.Unpack(data)
		if err != nil {
			out.Error = err.Error()
			return out
		}
	}
	res, err := signer.Verify(data, trusted)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Valid = true
	out.Subject = res.Subject
	out.Serial = res.Serial
	out.NotAfter = res.NotAfter.Format("2006-01-02")
	out.Reference = res.Reference
	return out
}

func readCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%s: no contiene un certificado PEM", path)
	}
	return x509.ParseCertificate(block.Bytes)
}

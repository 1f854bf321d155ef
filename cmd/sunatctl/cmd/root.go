package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	"github.com/jhoicas/facturador-sunat/pkg/config"
	"github.com/jhoicas/facturador-sunat/pkg/logger"
)

var (
	version = "1.0.0"

	// Global flags
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sunatctl",
	Short: "Herramienta de operación del facturador SUNAT",
	Long: `sunatctl arma, firma, envía y verifica comprobantes electrónicos SUNAT.

Ejemplos:
  # Firmar y empaquetar sin enviar
  sunatctl build factura.json --cert cert.pem --key key.pem -o ./out

  # Enviar documentos de una empresa
  sunatctl send factura.json boleta.json --company <id> --env BETA

  # Reintentar una transmisión fallida
  sunatctl retry <transmission-id>

  # Verificar la firma de un XML o ZIP
  sunatctl verify 20100000001-01-F001-123.zip`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadEnvFile()
	},
}

// Execute ejecuta la CLI con os.Args.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteArgs ejecuta con argumentos explícitos y salida redirigida.
func ExecuteArgs(args []string, out io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	defer rootCmd.SetArgs(nil)
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Archivo .env a cargar antes de leer la configuración")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Logs de depuración")
}

// loadEnvFile carga --env-file (obligatorio si se indica) o .env si existe.
func loadEnvFile() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("cargar %s: %w", envFile, err)
		}
		return nil
	}
	// No es crítico si no existe el archivo .env
	_ = godotenv.Load()
	return nil
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level := cfg.App.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: level, Output: os.Stderr})
	return cfg, log.Component("sunatctl"), nil
}

func readDocument(path string) (domsunat.RawDocument, error) {
	var doc domsunat.RawDocument
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

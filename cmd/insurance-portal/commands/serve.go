package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/devotel/go-insurance-forms/internal/server"
	"github.com/devotel/go-insurance-forms/pkg/model"
	"github.com/devotel/go-insurance-forms/pkg/schemaload"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the insurance portal API server",
	Long: `Start the portal HTTP API.

The server publishes form schemas, validates and stores submissions, and
answers the states-by-country lookup used by dependent select fields.

Examples:
  # Serve the bundled sample forms
  insurance-portal serve

  # Serve schemas from a directory
  insurance-portal serve --schemas ./forms --db ./portal.db`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("db", "insurance-portal.db", "SQLite database path")
	serveCmd.Flags().String("schemas", "", "directory of form schema documents (default: bundled samples)")
	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("serve.db", serveCmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("serve.schemas", serveCmd.Flags().Lookup("schemas"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	var (
		schemas []model.FormSchema
		err     error
	)
	if dir := viper.GetString("serve.schemas"); dir != "" {
		schemas, err = schemaload.FromDir(dir)
	} else {
		schemas, err = schemaload.Samples()
	}
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}
	if len(schemas) == 0 {
		return fmt.Errorf("no form schemas to serve")
	}
	logger.Info("schemas loaded", "count", len(schemas))

	store, err := server.NewSubmissionStore(server.WithDSN(viper.GetString("serve.db")))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, server.Config{
		Addr:    viper.GetString("serve.addr"),
		Schemas: schemas,
		Store:   store,
		Logger:  logger,
	})
}

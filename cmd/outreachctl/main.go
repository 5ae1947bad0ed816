// Command outreachctl - разовые операции сервиса: прогон, сопоставление,
// проверка классификатора, импорт профилей и запуск сервера.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"outreach-service/internal"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "outreachctl",
	Short: "Operator CLI for the outreach service",
	Long: `outreachctl runs the outreach pipeline stages on demand.

Configuration is read from the environment and an optional .env file,
the same way the service reads it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to .env file (default: ./.env if present)")
	rootCmd.AddCommand(ingestCmd, matchCmd, classifyCmd, profilesCmd, serveCmd)
}

// newApp собирает приложение без слушателей
func newApp() (*internal.App, error) {
	return internal.NewApp(internal.Options{EnvPath: envFile, WithoutListeners: true})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	// Ctrl+C прерывает прогон, уже сохранённые объявления остаются
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

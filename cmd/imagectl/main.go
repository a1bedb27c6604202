// imagectl drives the image studio API from a terminal: upload an image,
// submit an edit and watch the job until it finishes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"prompt-image-studio/internal/apiclient"
	"prompt-image-studio/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:          "imagectl",
	Short:        "Command line client for the prompt image studio API",
	SilenceUsage: true,
}

func init() {
	viper.SetEnvPrefix("imagectl")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "API base URL")
	rootCmd.PersistentFlags().Duration("http-timeout", 30*time.Second, "timeout for each HTTP request")
	rootCmd.PersistentFlags().Bool("verbose", false, "log poll attempts")

	for _, name := range []string{"server", "http-timeout", "verbose"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(newUploadCmd(), newProcessCmd(), newJobCmd(), newConfigCmd())
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newAPIClient() *apiclient.Client {
	return apiclient.NewClient(viper.GetString("server"), &http.Client{
		Timeout: viper.GetDuration("http-timeout"),
	})
}

func newLogger() *logger.Logger {
	if !viper.GetBool("verbose") {
		return logger.Nop()
	}
	log, err := logger.New("development")
	if err != nil {
		return logger.Nop()
	}
	return log
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

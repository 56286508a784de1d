package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "brokerlink",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

func configureFlags(flags *pflag.FlagSet) {
	// Request flags
	flags.String("target", "", "Target URL for the request")
	flags.StringP("method", "X", "GET", "HTTP method (GET or POST)")
	flags.StringToString("header", nil, "Request header name=value pairs (repeatable)")
	flags.StringToString("field", nil, "POST field name=value pairs (repeatable)")
	flags.String("encoding", "gzip", "Requested response content-encoding")
	flags.String("ca-bundle", "", "Path to a CA bundle file to pin verification to")
	flags.String("ca-path", "", "Path to a directory of CA certificates")

	// Pacing flags
	flags.IntP("rate", "r", 0, "Requests per second limit (0 means unlimited)")
	flags.IntP("repeat", "n", 1, "Number of times to execute the request")

	// Auth flags
	flags.String("access-token", "", "Static bearer token for the Authorization header")
	flags.String("cred-file", "", "Path to the stored credential file")
	flags.String("token-url", "", "OAuth2 token endpoint for refresh-token exchange")

	// Output flags
	flags.Bool("show-options", false, "Print the applied option report after executing")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("trace-endpoint", "", "OTLP endpoint to export execute spans to")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling rate between 0.0 and 1.0")
	flags.Bool("trace-insecure", false, "Export traces without TLS")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

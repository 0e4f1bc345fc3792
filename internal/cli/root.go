// Package cli implements the cobra-based commands for imageship.
//
// Each subcommand (publish, build, push, targets) is defined in its own
// file. This file defines the root command, global flags, and the error
// handling that translates CLIError exit codes into process exit codes.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/appship/imageship/internal/model"
)

// Global flag variables bound to persistent flags on the root command,
// available to every subcommand.
var (
	// jsonOutput switches stdout to structured JSON for machine
	// consumption. Errors always go to stderr either way.
	jsonOutput bool

	// verbose enables step-by-step trace output on stderr.
	verbose bool
)

// Version, Commit, and Date are injected from the main package, which
// receives them from the build system via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// The root command performs no action itself; functionality lives in
// the subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "imageship",
		Short: "Build and publish container images to a registry",
		Long: `imageship builds a container image from a build context, tags it
<name>:1.0 locally, retags it <registry>/<name>:latest, and pushes it.

Targets come from an imageship.yaml / imageship.jsonc manifest, or from
the DOCKER_NAME and BASE_LOCATION environment variables when no
manifest is present. All steps run strictly in sequence; the first
failure aborts everything after it.`,

		// Usage and error printing are handled in Execute for
		// consistent formatting across text and JSON modes.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewPublishCommand())
	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewPushCommand())
	rootCmd.AddCommand(NewTargetsCommand())

	return rootCmd
}

// Execute runs the root command and exits the process with the code
// carried by the returned error: CLIError codes verbatim, anything
// else as a general error.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError writes an error to stderr in the active output format.
// stderr is used even in JSON mode so stdout stays reserved for
// successful command output.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{"message": message},
		}
		if underlying != nil {
			errObj["error"].(map[string]interface{})["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
}

// VerboseLog prints a message to stderr only when --verbose is set.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

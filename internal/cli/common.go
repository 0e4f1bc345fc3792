// common.go holds the flag plumbing and output helpers shared by the
// publish, build, and push commands, which all operate on the same
// resolved target set.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/appship/imageship/internal/config"
	"github.com/appship/imageship/internal/model"
)

// targetFlags holds the flag values shared by the target-operating
// commands.
type targetFlags struct {
	manifest string // --manifest: explicit manifest file path
	name     string // --name: image name, overrides DOCKER_NAME
	registry string // --registry: registry base path, overrides BASE_LOCATION
}

// addTargetFlags registers the shared flags on a command.
func addTargetFlags(cmd *cobra.Command, flags *targetFlags) {
	cmd.Flags().StringVarP(&flags.manifest, "manifest", "m", "",
		"Manifest file path (default: imageship.yaml in the working directory)")
	cmd.Flags().StringVar(&flags.name, "name", "",
		"Image name for single-target mode (overrides DOCKER_NAME)")
	cmd.Flags().StringVar(&flags.registry, "registry", "",
		"Registry base path for single-target mode (overrides BASE_LOCATION)")
}

// resolveTargets resolves the effective manifest and selects the
// targets named as positional arguments (all targets when none are
// named).
func resolveTargets(flags *targetFlags, names []string) ([]model.Target, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to get working directory", err)
	}

	manifest, err := config.Resolve(cwd, flags.manifest, config.Overrides{
		Name:     flags.name,
		Registry: flags.registry,
	})
	if err != nil {
		return nil, err
	}
	VerboseLog("Resolved %d target(s)", len(manifest.Targets))

	return config.Select(manifest, names)
}

// printResults outputs publish results in the active format.
func printResults(results []*model.PublishResult) {
	if IsJSONOutput() {
		printResultsJSON(results)
	} else {
		printResultsText(results)
	}
}

// printResultsJSON writes the results under a top-level "results" key.
func printResultsJSON(results []*model.PublishResult) {
	type resultJSON struct {
		Results []*model.PublishResult `json:"results"`
	}

	out := resultJSON{Results: results}
	if out.Results == nil {
		// Empty slice over null for stable JSON output shape.
		out.Results = []*model.PublishResult{}
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}

// printResultsText writes one aligned row per result:
//
//	TARGET     BUILD-REF      PUSH-REF                                  DIGEST
//	chatws     chatws:1.0     registry.example.com/apps/chatws:latest   sha256:9f86d0…
func printResultsText(results []*model.PublishResult) {
	if len(results) == 0 {
		fmt.Println("Nothing to do.")
		return
	}

	fmt.Printf("%-16s %-24s %-48s %s\n", "TARGET", "BUILD-REF", "PUSH-REF", "DIGEST")
	for _, r := range results {
		fmt.Printf("%-16s %-24s %-48s %s\n",
			r.Target,
			r.BuildRef,
			orDash(r.PushRef),
			FormatDigest(r.Digest.String()),
		)
	}
}

// FormatDigest abbreviates a content digest for table output:
// "sha256:9f86d081884c7d65…" becomes "sha256:9f86d081884c". An empty
// digest renders as "-".
//
// Exported for testing (see common_test.go).
func FormatDigest(dgst string) string {
	if dgst == "" {
		return "-"
	}
	const shortLen = len("sha256:") + 12
	if len(dgst) <= shortLen {
		return dgst
	}
	return dgst[:shortLen]
}

// orDash substitutes "-" for an empty string in table cells.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// targets.go implements the "imageship targets" command, which shows
// the resolved target set and the references each target will produce,
// without touching Docker.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appship/imageship/internal/model"
	"github.com/appship/imageship/internal/refname"
)

// NewTargetsCommand creates the "targets" cobra command.
func NewTargetsCommand() *cobra.Command {
	flags := &targetFlags{}

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List the resolved publish targets",
		Long: `List every target the current manifest (or environment) resolves to,
with the build and publish references each would produce.

Examples:
  imageship targets
  imageship targets --manifest deploy/imageship.yaml --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runTargets(flags)
		},
	}

	addTargetFlags(cmd, flags)
	return cmd
}

// targetEntry is one row of targets output, shared by the text and
// JSON renderers.
type targetEntry struct {
	Name     string `json:"name"`
	Context  string `json:"context"`
	BuildRef string `json:"buildRef"`
	PushRef  string `json:"pushRef,omitempty"`
}

// runTargets resolves the target set and renders it.
func runTargets(flags *targetFlags) error {
	targets, err := resolveTargets(flags, nil)
	if err != nil {
		return err
	}

	entries := make([]targetEntry, 0, len(targets))
	for _, t := range targets {
		entry, err := buildTargetEntry(t)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	if IsJSONOutput() {
		printTargetsJSON(entries)
	} else {
		printTargetsText(entries)
	}
	return nil
}

// buildTargetEntry composes the references a target would produce.
// The push reference is omitted (not an error) when the target has no
// registry — such a target is still buildable.
func buildTargetEntry(t model.Target) (targetEntry, error) {
	buildRef, err := refname.BuildRef(t.Name, t.BuildTag)
	if err != nil {
		return targetEntry{}, model.WrapCLIError(model.ExitManifestError,
			fmt.Sprintf("invalid build reference for target %q", t.Name), err)
	}

	entry := targetEntry{
		Name:     t.Name,
		Context:  t.Context,
		BuildRef: buildRef,
	}

	if t.Registry != "" {
		pushRef, err := refname.PublishRef(t.Registry, t.Name)
		if err != nil {
			return targetEntry{}, model.WrapCLIError(model.ExitManifestError,
				fmt.Sprintf("invalid publish reference for target %q", t.Name), err)
		}
		entry.PushRef = pushRef
	}

	return entry, nil
}

// printTargetsJSON writes the entries under a top-level "targets" key.
func printTargetsJSON(entries []targetEntry) {
	type resultJSON struct {
		Targets []targetEntry `json:"targets"`
	}
	data, _ := json.MarshalIndent(resultJSON{Targets: entries}, "", "  ")
	fmt.Println(string(data))
}

// printTargetsText writes one aligned row per target.
func printTargetsText(entries []targetEntry) {
	if len(entries) == 0 {
		fmt.Println("No targets resolved.")
		return
	}

	fmt.Printf("%-16s %-20s %-24s %s\n", "NAME", "CONTEXT", "BUILD-REF", "PUSH-REF")
	for _, e := range entries {
		fmt.Printf("%-16s %-20s %-24s %s\n", e.Name, e.Context, e.BuildRef, orDash(e.PushRef))
	}
}

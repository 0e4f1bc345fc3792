// push.go implements the "imageship push" command: the publish half of
// the pipeline only, retagging and pushing an already-built local
// image.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/appship/imageship/internal/publish"
)

// NewPushCommand creates the "push" cobra command.
func NewPushCommand() *cobra.Command {
	flags := &targetFlags{}

	cmd := &cobra.Command{
		Use:   "push [target...]",
		Short: "Retag and push previously built images",
		Long: `Retag each selected target's local <name>:1.0 image as
<registry>/<name>:latest and push it.

The local image must exist — push refuses to run against a target that
has not been built, so a stale image from an earlier build can never be
published by accident.

Examples:
  imageship push
  imageship push chatws
  DOCKER_NAME=chatws BASE_LOCATION=registry.example.com/apps imageship push`,

		Args: cobra.ArbitraryArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), args, flags, publish.Options{SkipBuild: true})
		},
	}

	addTargetFlags(cmd, flags)
	return cmd
}

// build.go implements the "imageship build" command: the build half of
// the pipeline only, producing the local <name>:1.0 image without
// touching the registry.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/appship/imageship/internal/publish"
)

// NewBuildCommand creates the "build" cobra command.
func NewBuildCommand() *cobra.Command {
	flags := &targetFlags{}

	cmd := &cobra.Command{
		Use:   "build [target...]",
		Short: "Build images locally without pushing",
		Long: `Build each selected target into a local image tagged <name>:1.0.

No registry interaction takes place; a later "imageship push" publishes
the built images.

Examples:
  imageship build
  imageship build chatws
  DOCKER_NAME=chatws imageship build`,

		Args: cobra.ArbitraryArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), args, flags, publish.Options{SkipPush: true})
		},
	}

	addTargetFlags(cmd, flags)
	return cmd
}

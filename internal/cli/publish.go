// publish.go implements the "imageship publish" command, the primary
// operation: build, tag, and push every selected target in order.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/appship/imageship/internal/config"
	"github.com/appship/imageship/internal/docker"
	"github.com/appship/imageship/internal/publish"
)

// NewPublishCommand creates the "publish" cobra command.
func NewPublishCommand() *cobra.Command {
	flags := &targetFlags{}

	cmd := &cobra.Command{
		Use:   "publish [target...]",
		Short: "Build, tag, and push images to the registry",
		Long: `Build each selected target into <name>:1.0, retag it as
<registry>/<name>:latest, and push it.

Targets run strictly in sequence. The first failing step aborts the
current target and every remaining one — a failed build is never
followed by a tag or push.

Examples:
  imageship publish
  imageship publish chatws
  imageship publish chatws streamlit --json
  DOCKER_NAME=chatws BASE_LOCATION=registry.example.com/apps imageship publish`,

		// Positional arguments name manifest targets; none means all.
		Args: cobra.ArbitraryArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), args, flags, publish.Options{})
		},
	}

	addTargetFlags(cmd, flags)
	return cmd
}

// runPublish resolves targets, connects to Docker, and drives the
// pipeline. It is shared with the build and push commands, which pass
// SkipPush/SkipBuild through opts.
func runPublish(ctx context.Context, names []string, flags *targetFlags, opts publish.Options) error {
	targets, err := resolveTargets(flags, names)
	if err != nil {
		return err
	}

	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err
	}
	VerboseLog("Connected to Docker daemon")

	// Progress streams go to stderr so --json output on stdout stays
	// parseable.
	opts.Output = os.Stderr
	opts.RegistryAuth = config.RegistryAuth()

	publisher := publish.New(cli.API(), opts)
	results, err := publisher.PublishAll(ctx, targets)
	if err != nil {
		return err
	}

	printResults(results)
	return nil
}

// image.go implements the image operations behind the publishing
// pipeline: build, tag, push, and inspect.
//
// Build and push are streaming APIs in the Docker Engine: the daemon
// reports progress and errors as a JSON message stream. Both operations
// decode that stream with pkg/jsonmessage, which turns daemon-side
// failures into ordinary Go errors and hands aux payloads (the built
// image ID, the pushed manifest digest) to a callback.
package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/opencontainers/go-digest"

	"github.com/appship/imageship/internal/model"
)

// ImageAPI is the subset of the Docker Engine SDK client used by the
// publishing pipeline. *client.Client satisfies it; tests provide
// fakes.
type ImageAPI interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
	ImageTag(ctx context.Context, source, target string) error
	ImagePush(ctx context.Context, ref string, options image.PushOptions) (io.ReadCloser, error)
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
}

// BuildOptions configures a single image build.
type BuildOptions struct {
	// ContextDir is the build context directory to tar and send to the
	// daemon.
	ContextDir string

	// Dockerfile is the Dockerfile path relative to the context.
	Dockerfile string

	// Ref is the reference to tag the built image with
	// ("<name>:<buildTag>").
	Ref string

	// Labels are stamped onto the built image.
	Labels map[string]string

	// Output receives the human-readable build progress stream.
	// nil discards it.
	Output io.Writer
}

// BuildImage tars the context directory, submits it to the daemon, and
// consumes the build stream to completion. It returns the built image
// ID reported by the daemon's aux message.
//
// Any build failure — a missing Dockerfile, a failing RUN step — is
// reported inside the stream and returned as a CLIError with
// ExitBuildFailed, so callers abort before tagging or pushing.
func BuildImage(ctx context.Context, api ImageAPI, opts BuildOptions) (string, error) {
	buildCtx, err := archive.TarWithOptions(opts.ContextDir, &archive.TarOptions{})
	if err != nil {
		return "", model.WrapCLIError(model.ExitBuildFailed,
			fmt.Sprintf("failed to prepare build context %s", opts.ContextDir), err)
	}
	defer buildCtx.Close()

	resp, err := api.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:       []string{opts.Ref},
		Dockerfile: opts.Dockerfile,
		Labels:     opts.Labels,
		// Remove intermediate containers on success to keep the daemon
		// tidy across repeated publishes.
		Remove: true,
	})
	if err != nil {
		return "", model.WrapCLIError(model.ExitBuildFailed,
			fmt.Sprintf("failed to build image %s", opts.Ref), err)
	}
	defer resp.Body.Close()

	// The daemon reports the built image ID via an aux message of the
	// form {"aux":{"ID":"sha256:..."}}.
	var imageID string
	aux := func(msg jsonmessage.JSONMessage) {
		var result types.BuildResult
		if msg.Aux != nil && json.Unmarshal(*msg.Aux, &result) == nil {
			imageID = result.ID
		}
	}

	if err := streamMessages(resp.Body, opts.Output, aux); err != nil {
		return "", model.WrapCLIError(model.ExitBuildFailed,
			fmt.Sprintf("build of %s failed", opts.Ref), err)
	}

	return imageID, nil
}

// TagImage creates an additional tag for an existing local image,
// equivalent to `docker tag <source> <target>`.
func TagImage(ctx context.Context, api ImageAPI, source, target string) error {
	if err := api.ImageTag(ctx, source, target); err != nil {
		return model.WrapCLIError(model.ExitPushFailed,
			fmt.Sprintf("failed to tag %s as %s", source, target), err)
	}
	return nil
}

// PushImage pushes a reference to its registry and consumes the push
// stream to completion. It returns the content digest of the pushed
// manifest, reported by the daemon's aux message; republishing an
// unchanged image yields the same digest.
//
// The auth string is an opaque pre-encoded value passed through to the
// daemon unchanged. When empty, an anonymous auth config is encoded,
// which the daemon requires even for registries without authentication.
func PushImage(ctx context.Context, api ImageAPI, ref, auth string, out io.Writer) (digest.Digest, error) {
	if auth == "" {
		encoded, err := registry.EncodeAuthConfig(registry.AuthConfig{})
		if err != nil {
			return "", model.WrapCLIError(model.ExitPushFailed,
				"failed to encode registry auth", err)
		}
		auth = encoded
	}

	body, err := api.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: auth})
	if err != nil {
		return "", model.WrapCLIError(model.ExitPushFailed,
			fmt.Sprintf("failed to push %s", ref), err)
	}
	defer body.Close()

	// The final aux message carries {"Tag":..., "Digest":"sha256:...",
	// "Size":...} for the pushed manifest.
	var pushed types.PushResult
	aux := func(msg jsonmessage.JSONMessage) {
		var result types.PushResult
		if msg.Aux != nil && json.Unmarshal(*msg.Aux, &result) == nil {
			pushed = result
		}
	}

	if err := streamMessages(body, out, aux); err != nil {
		return "", model.WrapCLIError(model.ExitPushFailed,
			fmt.Sprintf("push of %s failed", ref), err)
	}

	if pushed.Digest == "" {
		// Older daemons may omit the aux message; the push still
		// succeeded, the digest is just unknown.
		return "", nil
	}

	dgst, err := digest.Parse(pushed.Digest)
	if err != nil {
		return "", model.WrapCLIError(model.ExitPushFailed,
			fmt.Sprintf("daemon reported malformed digest %q for %s", pushed.Digest, ref), err)
	}
	return dgst, nil
}

// InspectImage returns the local image ID and repo digests for a
// reference. Used by push-only mode to require that the build reference
// actually exists locally before retagging it.
func InspectImage(ctx context.Context, api ImageAPI, ref string) (string, []string, error) {
	info, _, err := api.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		return "", nil, fmt.Errorf("failed to inspect image %s: %w", ref, err)
	}
	return info.ID, info.RepoDigests, nil
}

// streamMessages decodes a daemon JSON message stream, forwarding
// human-readable progress to out and aux payloads to the callback.
// A stream that contains an error message yields a non-nil error.
func streamMessages(in io.Reader, out io.Writer, aux func(jsonmessage.JSONMessage)) error {
	if out == nil {
		out = io.Discard
	}
	return jsonmessage.DisplayJSONMessagesStream(in, out, 0, false, aux)
}

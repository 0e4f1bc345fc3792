package publish

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appship/imageship/internal/docker"
	"github.com/appship/imageship/internal/model"
)

// testDigest is a syntactically valid sha256 digest for fake daemon
// responses.
const testDigest = "sha256:b5bb9d8014a0f9b1d61e21e796d78dccdf1352f23cd32812f4850b878ae4944c"

// orderedFakeAPI implements docker.ImageAPI and records the order of
// operations, which is the core property of the strict pipeline.
type orderedFakeAPI struct {
	ops []string

	failBuild   bool
	failTag     bool
	failPush    bool
	failInspect bool

	buildRefs []string // Tags of each ImageBuild call
	tagPairs  [][2]string
	pushRefs  []string
}

func (f *orderedFakeAPI) ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error) {
	f.ops = append(f.ops, "build")
	_, _ = io.Copy(io.Discard, buildContext)
	f.buildRefs = append(f.buildRefs, options.Tags...)

	stream := `{"stream":"Step 1/1 : FROM scratch\n"}
{"aux":{"ID":"sha256:abc123"}}
`
	if f.failBuild {
		stream = `{"errorDetail":{"message":"build exploded"},"error":"build exploded"}
`
	}
	return types.ImageBuildResponse{Body: io.NopCloser(strings.NewReader(stream))}, nil
}

func (f *orderedFakeAPI) ImageTag(ctx context.Context, source, target string) error {
	f.ops = append(f.ops, "tag")
	f.tagPairs = append(f.tagPairs, [2]string{source, target})
	if f.failTag {
		return errors.New("no such image")
	}
	return nil
}

func (f *orderedFakeAPI) ImagePush(ctx context.Context, ref string, options image.PushOptions) (io.ReadCloser, error) {
	f.ops = append(f.ops, "push")
	f.pushRefs = append(f.pushRefs, ref)

	stream := `{"status":"pushing"}
{"aux":{"Tag":"latest","Digest":"` + testDigest + `","Size":528}}
`
	if f.failPush {
		stream = `{"errorDetail":{"message":"denied"},"error":"denied"}
`
	}
	return io.NopCloser(strings.NewReader(stream)), nil
}

func (f *orderedFakeAPI) ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error) {
	f.ops = append(f.ops, "inspect")
	if f.failInspect {
		return types.ImageInspect{}, nil, errors.New("No such image: " + imageID)
	}
	return types.ImageInspect{ID: "sha256:abc123"}, nil, nil
}

// testTarget returns a fully specified target whose context is a real
// temp directory.
func testTarget(t *testing.T, name string) model.Target {
	t.Helper()
	return model.Target{
		Name:     name,
		Context:  t.TempDir(),
		Registry: "registry.example.com/apps",
	}
}

func newPublisher(api docker.ImageAPI, opts Options) *Publisher {
	opts.now = func() time.Time { return time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC) }
	return New(api, opts)
}

// TestPublish_Order verifies the full pipeline runs build → tag → push
// in exactly that order and fills every result field.
func TestPublish_Order(t *testing.T) {
	api := &orderedFakeAPI{}
	p := newPublisher(api, Options{})

	result, err := p.Publish(context.Background(), testTarget(t, "chatws"))

	require.NoError(t, err)
	assert.Equal(t, []string{"build", "tag", "push"}, api.ops)

	assert.Equal(t, "chatws", result.Target)
	assert.Equal(t, "chatws:1.0", result.BuildRef)
	assert.Equal(t, "registry.example.com/apps/chatws:latest", result.PushRef)
	assert.Equal(t, "sha256:abc123", result.ImageID)
	assert.Equal(t, testDigest, result.Digest.String())
	assert.True(t, result.Pushed)

	require.Len(t, api.tagPairs, 1)
	assert.Equal(t, [2]string{"chatws:1.0", "registry.example.com/apps/chatws:latest"}, api.tagPairs[0])
	assert.Equal(t, []string{"registry.example.com/apps/chatws:latest"}, api.pushRefs)
}

// TestPublish_BuildFailureAborts verifies the strict-abort property: a
// failed build must never be followed by a tag or push.
func TestPublish_BuildFailureAborts(t *testing.T) {
	api := &orderedFakeAPI{failBuild: true}
	p := newPublisher(api, Options{})

	_, err := p.Publish(context.Background(), testTarget(t, "chatws"))

	requireExitCode(t, err, model.ExitBuildFailed)
	assert.Equal(t, []string{"build"}, api.ops, "tag and push must not run after a failed build")
}

// TestPublish_TagFailureAborts verifies that a failed tag prevents the
// push.
func TestPublish_TagFailureAborts(t *testing.T) {
	api := &orderedFakeAPI{failTag: true}
	p := newPublisher(api, Options{})

	_, err := p.Publish(context.Background(), testTarget(t, "chatws"))

	requireExitCode(t, err, model.ExitPushFailed)
	assert.Equal(t, []string{"build", "tag"}, api.ops)
}

// TestPublish_PushFailure verifies the push error code.
func TestPublish_PushFailure(t *testing.T) {
	api := &orderedFakeAPI{failPush: true}
	p := newPublisher(api, Options{})

	_, err := p.Publish(context.Background(), testTarget(t, "chatws"))

	requireExitCode(t, err, model.ExitPushFailed)
	assert.Equal(t, []string{"build", "tag", "push"}, api.ops)
}

// TestPublish_SkipPush verifies build-only mode: no registry
// interaction at all.
func TestPublish_SkipPush(t *testing.T) {
	api := &orderedFakeAPI{}
	p := newPublisher(api, Options{SkipPush: true})

	result, err := p.Publish(context.Background(), testTarget(t, "chatws"))

	require.NoError(t, err)
	assert.Equal(t, []string{"build"}, api.ops)
	assert.False(t, result.Pushed)
	assert.Empty(t, result.PushRef)
	assert.Empty(t, result.Digest)
}

// TestPublish_SkipBuild verifies push-only mode: the existing local
// image is inspected, then retagged and pushed.
func TestPublish_SkipBuild(t *testing.T) {
	api := &orderedFakeAPI{}
	p := newPublisher(api, Options{SkipBuild: true})

	result, err := p.Publish(context.Background(), testTarget(t, "chatws"))

	require.NoError(t, err)
	assert.Equal(t, []string{"inspect", "tag", "push"}, api.ops)
	assert.Equal(t, "sha256:abc123", result.ImageID)
	assert.True(t, result.Pushed)
}

// TestPublish_SkipBuild_MissingImage verifies that push-only mode
// refuses to run when no local image exists at the build reference.
// This closes the stale-image hazard of the original non-errexit
// script, which would happily push whatever was cached.
func TestPublish_SkipBuild_MissingImage(t *testing.T) {
	api := &orderedFakeAPI{failInspect: true}
	p := newPublisher(api, Options{SkipBuild: true})

	_, err := p.Publish(context.Background(), testTarget(t, "chatws"))

	requireExitCode(t, err, model.ExitBuildFailed)
	assert.Equal(t, []string{"inspect"}, api.ops, "nothing may be tagged or pushed without a local image")
}

// TestPublish_MissingRegistry verifies that a target without a registry
// fails before any Docker call when a push is requested.
func TestPublish_MissingRegistry(t *testing.T) {
	api := &orderedFakeAPI{}
	p := newPublisher(api, Options{})

	target := model.Target{Name: "chatws", Context: t.TempDir()}
	_, err := p.Publish(context.Background(), target)

	requireExitCode(t, err, model.ExitManifestError)
	assert.Empty(t, api.ops, "no Docker call may happen with an unresolvable publish reference")
}

// TestPublish_RepublishSameDigest verifies the idempotence property:
// publishing the same unchanged image twice reports the same digest.
func TestPublish_RepublishSameDigest(t *testing.T) {
	api := &orderedFakeAPI{}
	p := newPublisher(api, Options{})
	target := testTarget(t, "chatws")

	first, err := p.Publish(context.Background(), target)
	require.NoError(t, err)
	second, err := p.Publish(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest)
}

// TestPublishAll verifies sequential multi-target publishing and the
// first-failure abort across targets.
func TestPublishAll(t *testing.T) {
	t.Run("all succeed in order", func(t *testing.T) {
		api := &orderedFakeAPI{}
		p := newPublisher(api, Options{})

		targets := []model.Target{testTarget(t, "chatws"), testTarget(t, "streamlit")}
		results, err := p.PublishAll(context.Background(), targets)

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "chatws", results[0].Target)
		assert.Equal(t, "streamlit", results[1].Target)
		assert.Equal(t, []string{"chatws:1.0", "streamlit:1.0"}, api.buildRefs)
	})

	t.Run("first failure aborts the rest", func(t *testing.T) {
		api := &orderedFakeAPI{failBuild: true}
		p := newPublisher(api, Options{})

		targets := []model.Target{testTarget(t, "chatws"), testTarget(t, "streamlit")}
		results, err := p.PublishAll(context.Background(), targets)

		requireExitCode(t, err, model.ExitBuildFailed)
		assert.Empty(t, results)
		assert.Equal(t, []string{"build"}, api.ops, "the second target must not be attempted")
	})
}

// requireExitCode asserts that err is a CLIError with the given code.
func requireExitCode(t *testing.T, err error, code model.ExitCode) {
	t.Helper()
	require.Error(t, err)
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr), "expected *model.CLIError, got %T: %v", err, err)
	assert.Equal(t, code, cliErr.Code)
}

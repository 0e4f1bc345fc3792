package docker

import (
	"fmt"
	"time"

	"github.com/appship/imageship/internal/model"
)

// Label key constants define the image labels imageship stamps onto
// every image it builds. The labels record which target produced the
// image and when, so an image found in a registry or on a host can be
// attributed after the fact with `docker inspect` alone.
//
// All keys share the "imageship." prefix to avoid collisions with
// labels set by Dockerfiles or other tooling.
const (
	// LabelPrefix is the common prefix for all imageship labels.
	LabelPrefix = "imageship."

	// LabelManagedBy identifies images built by imageship.
	// Key: "imageship.managed-by", value: always "imageship".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelTarget stores the publish target name the image was built for.
	LabelTarget = LabelPrefix + "target"

	// LabelRevision stores the source commit hash at build time.
	// Omitted when the build context was not a Git checkout.
	LabelRevision = LabelPrefix + "revision"

	// LabelBuiltAt stores the RFC3339 UTC build timestamp.
	LabelBuiltAt = LabelPrefix + "built-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "imageship"

// BuildLabels constructs the label map applied to a built image.
// The revision label is only present when a revision is known.
func BuildLabels(targetName, revision string, builtAt time.Time) map[string]string {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelTarget:    targetName,
		LabelBuiltAt:   builtAt.UTC().Format(time.RFC3339),
	}
	if revision != "" {
		labels[LabelRevision] = revision
	}
	return labels
}

// ParseLabels reconstructs image provenance from a label map, the
// inverse of BuildLabels. It returns an error when the map was not
// produced by imageship or the timestamp is malformed.
func ParseLabels(labels map[string]string) (*model.ImageProvenance, error) {
	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf("image is not managed by imageship")
	}

	target := labels[LabelTarget]
	if target == "" {
		return nil, fmt.Errorf("missing label %s", LabelTarget)
	}

	builtAt, err := time.Parse(time.RFC3339, labels[LabelBuiltAt])
	if err != nil {
		return nil, fmt.Errorf("invalid %s label: %w", LabelBuiltAt, err)
	}

	return &model.ImageProvenance{
		Target:   target,
		Revision: labels[LabelRevision],
		BuiltAt:  builtAt,
	}, nil
}

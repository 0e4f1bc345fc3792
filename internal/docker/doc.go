// Package docker wraps the Docker Engine SDK for the imageship CLI.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows) and API version negotiation
//   - Image operations: build (tar context + progress stream decoding),
//     tag, push (with digest capture), and inspect
//   - The imageship.* image label schema used to stamp provenance
//     metadata onto built images
//
// The underlying SDK is github.com/docker/docker/client; build and push
// progress streams are decoded with pkg/jsonmessage, the same machinery
// the docker CLI uses, so daemon-reported errors surface as Go errors.
package docker

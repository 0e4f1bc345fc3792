// client.go provides Docker client construction with automatic socket
// detection. The daemon address is resolved from DOCKER_HOST when set,
// otherwise from the platform's known socket locations.
package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/appship/imageship/internal/model"
)

// pingTimeout bounds the daemon reachability probe. Docker Desktop on
// macOS can take a few seconds to answer the first request.
const pingTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client. Wrapping rather than
// embedding keeps the exposed surface small; image operations go
// through the API accessor, which also enables fakes in tests.
type Client struct {
	inner *client.Client
}

// NewClient creates a Docker client.
//
// Resolution order for the daemon address:
//  1. DOCKER_HOST, used as-is when set.
//  2. Platform defaults: /var/run/docker.sock on Linux, the same plus
//     ~/.docker/run/docker.sock on macOS, and the docker_engine named
//     pipe on Windows.
//
// Returns a CLIError with ExitDockerNotRunning when no socket is found
// or the SDK client cannot be constructed.
func NewClient() (*Client, error) {
	host := os.Getenv("DOCKER_HOST")
	if host == "" {
		detected, err := detectHost()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitDockerNotRunning,
				"Docker socket not found", err)
		}
		host = detected
	}

	// API version negotiation keeps the client compatible with older
	// daemons instead of failing on a version mismatch.
	inner, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host), err)
	}

	return &Client{inner: inner}, nil
}

// detectHost returns the daemon address for the current platform by
// probing known socket locations. Existence of the socket file is
// checked here; actual daemon liveness is verified by Ping.
func detectHost() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return firstUnixSocket("/var/run/docker.sock")

	case "darwin":
		paths := []string{"/var/run/docker.sock"}
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, home+"/.docker/run/docker.sock")
		}
		return firstUnixSocket(paths...)

	case "windows":
		// Named pipes cannot be os.Stat'ed; a brief dial is the probe.
		pipePath := `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipePath, time.Second)
		if err != nil {
			return "", fmt.Errorf("Docker named pipe not found at %s: %w", pipePath, err)
		}
		conn.Close()
		return "npipe://" + pipePath, nil

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// firstUnixSocket returns the unix:// address of the first socket path
// that exists on the filesystem.
func firstUnixSocket(paths ...string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("Docker socket not found at any of %v — is Docker running?", paths)
}

// Ping verifies that the daemon is reachable, bounded by pingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning,
			"Docker daemon is not responding — is Docker running?", err)
	}
	return nil
}

// API returns the image-operation view of the underlying SDK client.
// The publish pipeline depends on this interface rather than the
// concrete client so tests can substitute fakes.
func (c *Client) API() ImageAPI {
	return c.inner
}

// Close releases the client's resources. Safe to call multiple times.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

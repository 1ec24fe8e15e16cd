package core

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
)

// Driver is the Sandbox Driver (spec §4.1): it owns a Docker Engine client
// and knows how to create/clone/remove Volumes and run Tasks inside
// resource-limited Containers. One Driver is shared by every pipeline.
type Driver struct {
	cli         *client.Client
	helperImage string
	cgroupRoot  string
}

// NewDriver connects to the configured Docker Engine endpoint.
func NewDriver(cfg Config) (*Driver, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithHost(cfg.DockerHost),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("docker client init: %w", err)
	}
	return &Driver{cli: cli, helperImage: cfg.HelperImage, cgroupRoot: cfg.CgroupRoot}, nil
}

// Limits bundles the resource constraints applied to a Container at create time.
type Limits struct {
	CPUs           float64 // number of CPUs, 0 = unset
	MemoryMB       int     // memory (and memory+swap) ceiling, 0 = unset
	StackKB        int     // ulimit stack=<KB>:<KB>, 0 = unset
	PidsLimit      int64   // --pids-limit, 0 = unset
	EnableNetwork  bool    // default false: --network none
	DisableLogging bool    // default false: container keeps the default logging driver
}

// volumeMount describes one volume bound into a container's filesystem.
type volumeMount struct {
	path   string
	volume *Volume
}

// runHelper creates, starts, waits for, and removes a short-lived container
// used for volume copy/clone/remove operations that the public Driver
// surface never exposes directly as a long-lived Container.
func (d *Driver) runHelper(ctx context.Context, args []string, mounts []volumeMount) error {
	id, err := d.createContainer(ctx, d.helperImage, args, Limits{}, "/workdir", mounts)
	if err != nil {
		return fmt.Errorf("helper container create: %w", err)
	}
	defer func() { _ = d.cli.ContainerRemove(context.Background(), id, container.RemoveOptions{Force: true}) }()

	if err := d.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("helper container start: %w", err)
	}
	statusCh, errCh := d.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("helper container wait: %w", err)
		}
	case resp := <-statusCh:
		if resp.StatusCode != 0 {
			return fmt.Errorf("helper container exited %d", resp.StatusCode)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// newName returns a UUID-suffixed name for a volume, container, or job.
func newName(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// singleFileTar builds an in-memory tar archive containing one file at
// relPath, suitable for Docker's CopyToContainer (which copies the tar's
// entries relative to the destination directory argument).
func singleFileTar(relPath string, content []byte) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	hdr := &tar.Header{
		Name: path.Clean(relPath),
		Mode: 0o644,
		Size: int64(len(content)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, err
	}
	if _, err := tw.Write(content); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

package core

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/docker/docker/api/types/container"
	dockervolume "github.com/docker/docker/api/types/volume"
)

// Volume is an ephemeral named filesystem attached to sandbox executions
// (spec §3 "Volume"). It is created at pipeline start from the submission's
// uploaded+arranged files and cloned once per test case.
type Volume struct {
	driver *Driver
	Name   string
}

// CreateVolume allocates a fresh, empty Docker volume.
func (d *Driver) CreateVolume(ctx context.Context) (*Volume, error) {
	name := newName("volume")
	if _, err := d.cli.VolumeCreate(ctx, dockervolume.CreateOptions{Name: name}); err != nil {
		return nil, fmt.Errorf("volume create: %w", err)
	}
	return &Volume{driver: d, Name: name}, nil
}

// Remove deletes the volume. Safe to call on an already-removed volume name
// only if the caller does not retry; Docker itself errors on unknown volumes.
func (v *Volume) Remove(ctx context.Context) error {
	if err := v.driver.cli.VolumeRemove(ctx, v.Name, true); err != nil {
		return fmt.Errorf("volume remove %s: %w", v.Name, err)
	}
	return nil
}

// Clone produces a byte-exact copy of v's contents in a freshly created
// volume, via a transient helper container that mounts both volumes and
// runs a recursive copy (spec §4.1: "clone is implemented by a transient
// helper container that copies one mounted source volume to a freshly
// created destination volume").
func (v *Volume) Clone(ctx context.Context) (*Volume, error) {
	dst, err := v.driver.CreateVolume(ctx)
	if err != nil {
		return nil, err
	}
	mounts := []volumeMount{
		{path: "/src", volume: v},
		{path: "/dst", volume: dst},
	}
	if err := v.driver.runHelper(ctx, []string{"sh", "-c", "cp -a /src/. /dst/"}, mounts); err != nil {
		_ = dst.Remove(context.Background())
		return nil, fmt.Errorf("volume clone %s: %w", v.Name, err)
	}
	return dst, nil
}

// CopyFile copies one file from the host filesystem into the volume at
// volumePath, via a transient helper container and the Docker copy API.
func (v *Volume) CopyFile(ctx context.Context, hostPath, volumePath string) error {
	content, err := os.ReadFile(hostPath)
	if err != nil {
		return fmt.Errorf("read host file %s: %w", hostPath, err)
	}
	return v.copyContent(ctx, volumePath, content)
}

// CopyFiles copies each host file into dirInVolume, keeping each file's base name.
func (v *Volume) CopyFiles(ctx context.Context, hostPaths []string, dirInVolume string) error {
	for _, hp := range hostPaths {
		dst := path.Join(dirInVolume, filepath.Base(hp))
		if err := v.CopyFile(ctx, hp, dst); err != nil {
			return err
		}
	}
	return nil
}

func (v *Volume) copyContent(ctx context.Context, volumePath string, content []byte) error {
	id, err := v.driver.createContainer(ctx, v.driver.helperImage, []string{"sleep", "0"}, Limits{}, "/workdir", []volumeMount{{path: "/workdir", volume: v}})
	if err != nil {
		return fmt.Errorf("copy helper create: %w", err)
	}
	defer func() { _ = v.driver.removeContainer(context.Background(), id) }()

	dir, name := path.Split(path.Join("/workdir", volumePath))
	tarBuf, err := singleFileTar(name, content)
	if err != nil {
		return fmt.Errorf("build copy archive: %w", err)
	}
	if dir == "" {
		dir = "/workdir"
	}
	if err := v.driver.cli.CopyToContainer(ctx, id, dir, tarBuf, container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("copy to container: %w", err)
	}
	return nil
}

// RemoveFiles deletes the named volume-relative files via a transient helper container.
func (v *Volume) RemoveFiles(ctx context.Context, filesInVolume []string) error {
	if len(filesInVolume) == 0 {
		return nil
	}
	args := append([]string{"rm", "-f"}, filesInVolume...)
	mounts := []volumeMount{{path: "/workdir", volume: v}}
	if err := v.driver.runHelper(ctx, args, mounts); err != nil {
		return fmt.Errorf("volume remove files %s: %w", v.Name, err)
	}
	return nil
}

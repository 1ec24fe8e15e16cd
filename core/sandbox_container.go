package core

import (
	"context"
	"fmt"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	units "github.com/docker/go-units"
)

// createContainer issues docker create with the limits translated into
// HostConfig per spec §4.1/§6: cpu quota, memory (+ equal swap), stack
// ulimit, pid ceiling, network off by default, logging driver on/off,
// --init, fixed workdir, volume mounts.
func (d *Driver) createContainer(ctx context.Context, image string, args []string, limits Limits, workdir string, mounts []volumeMount) (string, error) {
	init := true
	hostCfg := &dockercontainer.HostConfig{
		NetworkMode: "none",
		Mounts:      toDockerMounts(mounts),
		Init:        &init,
	}
	if !limits.EnableNetwork {
		hostCfg.NetworkMode = "none"
	} else {
		hostCfg.NetworkMode = "bridge"
	}
	if limits.DisableLogging {
		hostCfg.LogConfig = dockercontainer.LogConfig{Type: "none"}
	}
	res := dockercontainer.Resources{}
	if limits.CPUs > 0 {
		res.NanoCPUs = int64(limits.CPUs * 1_000_000_000)
	}
	if limits.MemoryMB > 0 {
		memBytes := int64(limits.MemoryMB) * 1024 * 1024
		res.Memory = memBytes
		res.MemorySwap = memBytes
	}
	if limits.StackKB > 0 {
		stackBytes := int64(limits.StackKB) * 1024
		res.Ulimits = []*units.Ulimit{{Name: "stack", Soft: stackBytes, Hard: stackBytes}}
	}
	if limits.PidsLimit > 0 {
		pl := limits.PidsLimit
		res.PidsLimit = &pl
	}
	hostCfg.Resources = res

	cfg := &dockercontainer.Config{
		Image:        image,
		Cmd:          args,
		WorkingDir:   workdir,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		OpenStdin:    true,
		StdinOnce:    true,
		Tty:          false,
	}

	created, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, newName("container"))
	if err != nil {
		return "", fmt.Errorf("container create: %w", err)
	}
	return created.ID, nil
}

func toDockerMounts(mounts []volumeMount) []mount.Mount {
	out := make([]mount.Mount, 0, len(mounts))
	for _, m := range mounts {
		out = append(out, mount.Mount{
			Type:   mount.TypeVolume,
			Source: m.volume.Name,
			Target: m.path,
		})
	}
	return out
}

// removeContainer deletes a container unconditionally; failures here are
// reported to the caller but never block the exit path that triggered them.
func (d *Driver) removeContainer(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := d.cli.ContainerRemove(ctx, id, dockercontainer.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("container remove %s: %w", id, err)
	}
	return nil
}

// inspectExitCode reads the terminal exit code of a stopped container.
func (d *Driver) inspectExitCode(ctx context.Context, id string) (int, error) {
	info, err := d.cli.ContainerInspect(ctx, id)
	if err != nil {
		return -1, fmt.Errorf("container inspect %s: %w", id, err)
	}
	return info.State.ExitCode, nil
}

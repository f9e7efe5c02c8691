package rex

import (
	"context"
)

// DockerCommander runs commands inside local containers as root.
type DockerCommander struct {
	// Binary defaults to "docker"; "podman" works as well.
	Binary string
}

// Args returns the exec argument list used to run cmd in container.
func (d *DockerCommander) Args(container string, cmd string) []string {
	return []string{"exec", "--user", "root", container, "sh", "-c", cmd}
}

func (d *DockerCommander) Run(ctx context.Context, container string, cmd string) (string, error) {
	bin := d.Binary
	if bin == "" {
		bin = "docker"
	}

	return runLocal(ctx, container, cmd, bin, d.Args(container, cmd)...)
}

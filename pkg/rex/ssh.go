package rex

import (
	"context"
)

// SSHCommander runs commands through the local ssh client.
type SSHCommander struct {
	// User is the remote login; empty uses the ssh client default.
	User string
	// KeyFile is an optional identity file passed with -i.
	KeyFile string
	// Options are extra -o options, e.g. "StrictHostKeyChecking=no".
	Options []string
	// Binary defaults to "ssh".
	Binary string
}

// Args returns the ssh argument list used to run cmd on host.
func (s *SSHCommander) Args(host string, cmd string) []string {
	args := []string{"-C", "-o", "BatchMode=yes"}

	if s.KeyFile != "" {
		args = append(args, "-i", s.KeyFile)
	}

	for _, o := range s.Options {
		args = append(args, "-o", o)
	}

	dest := host
	if s.User != "" {
		dest = s.User + "@" + host
	}

	return append(args, dest, cmd)
}

func (s *SSHCommander) Run(ctx context.Context, host string, cmd string) (string, error) {
	bin := s.Binary
	if bin == "" {
		bin = "ssh"
	}

	return runLocal(ctx, host, cmd, bin, s.Args(host, cmd)...)
}

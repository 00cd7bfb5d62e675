package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// Process is a Client connected to a backend subprocess.
type Process struct {
	*Client
	cmd *exec.Cmd
}

// Spawn starts exe with args and connects a Client to its stdin and stdout.
// The subprocess's stderr is passed through.
func Spawn(ctx context.Context, logger *slog.Logger, exe string, args ...string) (*Process, error) {
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open backend stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open backend stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start backend %s: %w", exe, err)
	}

	return &Process{Client: NewClient(stdout, stdin, logger), cmd: cmd}, nil
}

// Close closes the backend's stdin and waits for it to exit.
func (p *Process) Close() error {
	err := p.Client.Close()
	if werr := p.cmd.Wait(); werr != nil && err == nil {
		err = fmt.Errorf("backend exited: %w", werr)
	}
	return err
}

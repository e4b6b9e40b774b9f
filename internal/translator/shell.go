package translator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ShellService drives the translate-shell binary (`trans`) out of process.
// One invocation translates one string; batching is layered on top by the
// Gateway, which packs several texts into a single argument.
type ShellService struct {
	binary string
}

// NewShellService returns a ShellService using the given binary name, or
// "trans" when empty.
func NewShellService(binary string) *ShellService {
	if binary == "" {
		binary = "trans"
	}
	return &ShellService{binary: binary}
}

func (s *ShellService) Name() string {
	return "shell"
}

// Translate runs the binary with -brief -no-ansi and the src:tgt language
// pair. The caller bounds the wait through ctx; deadline expiry surfaces as
// ErrTimeout, a missing binary as ErrUnavailable, and a non-zero exit as
// ErrServiceError carrying whatever the process printed.
func (s *ShellService) Translate(ctx context.Context, req Request) (string, error) {
	args := []string{
		"-brief", "-no-ansi",
		fmt.Sprintf("%s:%s", req.SourceLang, req.TargetLang),
		req.Text,
	}

	cmd := exec.CommandContext(ctx, s.binary, args...)
	// Locale isolation keeps the binary's own messages parseable.
	cmd.Env = append(os.Environ(), "LC_ALL=C", "LANG=C")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return "", ErrTimeout
	}

	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s not found", ErrUnavailable, s.binary)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%w: %s", ErrServiceError, msg)
	}

	return stdout.String(), nil
}

// IsAvailable checks that the binary exists on PATH and answers --version.
func (s *ShellService) IsAvailable(ctx context.Context) error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrUnavailable, s.binary)
	}
	cmd := exec.CommandContext(ctx, s.binary, "--version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s --version failed: %v", ErrUnavailable, s.binary, err)
	}
	return nil
}

// Package oracle wraps the force-directed layout step. An oracle takes a
// subgraph as GML text and returns the same graph with node coordinates.
package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrLayoutFailed signals that the oracle could not lay out the input.
	ErrLayoutFailed = errors.New("layout failed")
	// ErrEmptyLayout signals a successful run that produced no output.
	ErrEmptyLayout = errors.New("layout produced no output")
)

// Oracle turns GML text into laid-out GML text.
type Oracle interface {
	Layout(ctx context.Context, gml string) (string, error)
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, gml string) (string, error)

func (f Func) Layout(ctx context.Context, gml string) (string, error) { return f(ctx, gml) }

// Identity returns its input unchanged. Nodes keep their default (0, 0) position.
type Identity struct{}

func (Identity) Layout(ctx context.Context, gml string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return gml, nil
}

// Command runs an external layout program with GML on stdin and reads GML
// from stdout.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

// ParseCommand splits a whitespace separated command line.
func ParseCommand(line string, timeout time.Duration) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty layout command")
	}
	return &Command{Path: fields[0], Args: fields[1:], Timeout: timeout}, nil
}

func (c *Command) Layout(ctx context.Context, gml string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = strings.NewReader(gml)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrLayoutFailed, c.Path, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("%w: %s: %w", ErrLayoutFailed, c.Path, err)
		}
		return "", fmt.Errorf("%w: %s: %w: %s", ErrLayoutFailed, c.Path, err, msg)
	}

	if strings.TrimSpace(stdout.String()) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyLayout, c.Path)
	}
	return stdout.String(), nil
}

// Package solver talks to the external geometric constraint solver.
// The solver is an opaque subprocess: it reads a gear-train document
// on stdin and writes the same document with all positions numerically
// resolved on stdout. Nothing here inspects or assumes its internals.
package solver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/chazu/epicycle/pkg/train"
)

// DefaultTimeout bounds one solve round trip.
const DefaultTimeout = 30 * time.Second

// Client invokes the solver binary once per request.
type Client struct {
	path    string
	args    []string
	timeout time.Duration
	log     *slog.Logger
}

// Option adjusts a Client.
type Option func(*Client)

// WithTimeout overrides the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for the solver at path.
func New(path string, args []string, opts ...Option) *Client {
	c := &Client{
		path:    path,
		args:    args,
		timeout: DefaultTimeout,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Solve sends the document through the solver and parses the solved
// document it returns. A non-zero exit reports the solver's stderr;
// unparseable output is a malformed-document error from train.Parse.
func (c *Client) Solve(ctx context.Context, doc *train.Document) (*train.Document, error) {
	payload, err := doc.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.path, c.args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	c.log.Debug("solver invoked",
		"path", c.path,
		"elapsed", time.Since(start),
		"stdout_bytes", stdout.Len(),
		"err", runErr)

	if runErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("solver %s: %w", c.path, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("solver %s: %w", c.path, runErr)
		}
		return nil, fmt.Errorf("solver %s: %w: %s", c.path, runErr, msg)
	}

	solved, err := train.Parse(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("solver %s output: %w", c.path, err)
	}
	return solved, nil
}

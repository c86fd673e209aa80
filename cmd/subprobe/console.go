package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/hamed0406/subprobe/internal/domain"
)

// console prints one concise line per recorded host.
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func (c *console) Write(_ context.Context, r domain.ProbeResult) error {
	paint := color.New(color.FgGreen)
	switch {
	case r.Status == 0:
		paint = color.New(color.FgRed)
	case r.Status == 429 || r.Status >= 500:
		paint = color.New(color.FgYellow)
	case r.Status >= 400:
		paint = color.New(color.FgHiBlack)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	line := fmt.Sprintf("%s: status=%d (tries=%d)", r.Host, r.Status, r.Tries)
	if r.Error != "" {
		line += " " + r.Error
	}
	// the file sink is authoritative; a broken terminal must not stop the run
	_, _ = paint.Fprintln(c.out, line)
	return nil
}

func (c *console) Close() error { return nil }

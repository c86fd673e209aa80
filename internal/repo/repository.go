package repo

import (
	"context"

	"go.uber.org/multierr"

	"github.com/hamed0406/subprobe/internal/domain"
)

// ResultSink receives exactly one ProbeResult per host. Implementations must
// be safe for concurrent use.
type ResultSink interface {
	Write(ctx context.Context, r domain.ProbeResult) error
	Close() error
}

// Tee fans a result out to several sinks in order. The first sink is the
// authoritative one: if it fails the rest are not written.
type Tee []ResultSink

func (t Tee) Write(ctx context.Context, r domain.ProbeResult) error {
	var err error
	for i, s := range t {
		if s == nil {
			continue
		}
		if werr := s.Write(ctx, r); werr != nil {
			err = multierr.Append(err, werr)
			if i == 0 {
				return err
			}
		}
	}
	return err
}

func (t Tee) Close() error {
	var err error
	for _, s := range t {
		if s != nil {
			err = multierr.Append(err, s.Close())
		}
	}
	return err
}

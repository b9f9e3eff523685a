// Package chaos cuts replica set members off the network and heals them again.
package chaos

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const restoreTimeout = 2 * time.Minute

// Target identifies the member to isolate: its pod (unit) name and replica set host name.
type Target struct {
	Unit string
	Host string
}

// Injector applies and removes network isolation. Restore removes everything the injector
// applied and is safe to call when nothing is applied.
type Injector interface {
	Isolate(ctx context.Context, target Target) error
	Restore(ctx context.Context) error
}

// Isolate applies isolation to target, holds it for dwell and removes it. Removal is
// attempted even when ctx ends during the dwell.
func Isolate(ctx context.Context, injector Injector, target Target, dwell time.Duration, log *zap.SugaredLogger) error {
	return WhileIsolated(ctx, injector, target, log, func(ctx context.Context) error {
		return Dwell(ctx, dwell)
	})
}

// WhileIsolated applies isolation to target, runs check and removes the isolation whatever
// check returned.
func WhileIsolated(ctx context.Context, injector Injector, target Target, log *zap.SugaredLogger, check func(ctx context.Context) error) error {
	log.Infof("Isolating %s (%s)", target.Unit, target.Host)
	if err := injector.Isolate(ctx, target); err != nil {
		restoreErr := restore(ctx, injector)
		return multierror.Append(errors.Wrapf(err, "could not isolate %s", target.Unit), restoreErr).ErrorOrNil()
	}

	var result *multierror.Error
	if err := check(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := restore(ctx, injector); err != nil {
		result = multierror.Append(result, err)
	} else {
		log.Infof("Removed isolation of %s", target.Unit)
	}
	return result.ErrorOrNil()
}

// Dwell blocks for d or until ctx is done.
func Dwell(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "isolation interrupted")
	}
}

func restore(ctx context.Context, injector Injector) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()
	if err := injector.Restore(ctx); err != nil {
		return errors.Wrap(err, "could not remove isolation")
	}
	return nil
}

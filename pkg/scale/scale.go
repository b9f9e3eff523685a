// Package scale grows and shrinks the replica set and checks that its membership follows.
package scale

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mongodb/mongodb-replicaset-verifier/pkg/orchestrator"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/replicaset"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/util/contains"
)

var (
	ErrMajorityLoss       = errors.New("scaling down would remove a majority of the members")
	ErrMembershipMismatch = errors.New("replica set membership does not match the deployment")
)

// Plan is a change from Current to Desired members.
type Plan struct {
	Current int
	Desired int
}

func (p Plan) IsScalingDown() bool {
	return p.Desired < p.Current
}

func (p Plan) IsScalingUp() bool {
	return p.Desired > p.Current
}

// Validate rejects plans that leave no member or whose survivors are not a strict majority
// of the current members; such a set cannot elect a primary while the removed members
// are still in its configuration.
func (p Plan) Validate() error {
	if p.Desired < 1 {
		return errors.Errorf("cannot scale from %d to %d members", p.Current, p.Desired)
	}
	if p.Desired == p.Current {
		return errors.Errorf("already at %d members", p.Current)
	}
	if p.IsScalingDown() && p.Desired*2 <= p.Current {
		return errors.Wrapf(ErrMajorityLoss, "%d of %d members would remain", p.Desired, p.Current)
	}
	return nil
}

// Topology is the part of replicaset.Inspector the controller needs.
type Topology interface {
	WaitForMembers(ctx context.Context, expected []string, interval, timeout time.Duration) (replicaset.Comparison, error)
	WaitForSettledPrimary(ctx context.Context, interval, timeout time.Duration) (replicaset.Member, error)
}

type Options struct {
	PollInterval time.Duration
	// Timeout bounds both the wait for the new units to become active and the wait for
	// the replica set to report the new membership.
	Timeout time.Duration
}

type Controller struct {
	orchestrator orchestrator.Orchestrator
	topology     Topology
	opts         Options
	log          *zap.SugaredLogger
}

func NewController(o orchestrator.Orchestrator, topology Topology, opts Options, log *zap.SugaredLogger) Controller {
	return Controller{orchestrator: o, topology: topology, opts: opts, log: log}
}

// ScaleBy adds delta members, or removes them when delta is negative, and waits until both
// the orchestrator and the replica set agree on exactly the expected members.
func (c Controller) ScaleBy(ctx context.Context, delta int) (Plan, error) {
	units, err := c.orchestrator.Units(ctx)
	if err != nil {
		return Plan{}, errors.Wrap(err, "could not list units")
	}
	plan := Plan{Current: len(units), Desired: len(units) + delta}
	if err := plan.Validate(); err != nil {
		return plan, err
	}

	direction := "down"
	if plan.IsScalingUp() {
		direction = "up"
	}
	c.log.Infof("Scaling %s from %d to %d members", direction, plan.Current, plan.Desired)
	target, err := c.orchestrator.Scale(ctx, delta)
	if err != nil {
		return plan, err
	}
	if target != plan.Desired {
		c.log.Warnf("Requested %d members but the workload now targets %d", plan.Desired, target)
		plan = Plan{Current: target - delta, Desired: target}
	}

	if err := c.orchestrator.WaitForActive(ctx, plan.Desired, c.opts.Timeout); err != nil {
		return plan, err
	}

	expected := orchestrator.MemberHosts(c.orchestrator, plan.Desired)
	comparison, err := c.topology.WaitForMembers(ctx, expected, c.opts.PollInterval, c.opts.Timeout)
	if err != nil {
		if comparison.Equal() {
			return plan, errors.Wrap(err, "could not read replica set membership")
		}
		return plan, errors.Wrapf(ErrMembershipMismatch, "%s", comparison)
	}

	if plan.IsScalingDown() {
		primary, err := c.topology.WaitForSettledPrimary(ctx, c.opts.PollInterval, c.opts.Timeout)
		if err != nil {
			return plan, err
		}
		if !contains.String(expected, primary.Name) {
			return plan, errors.Errorf("primary %s is not one of the remaining members %v", primary.Name, expected)
		}
	}
	c.log.Infof("Replica set has the expected %d members", plan.Desired)
	return plan, nil
}

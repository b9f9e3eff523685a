// Package mock provides in-memory stand-ins for the collaborators that need a cluster.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mongodb/mongodb-replicaset-verifier/pkg/orchestrator"
)

// Orchestrator keeps the workload in memory. Units become active when WaitForActive is
// called, unless Stuck is set.
type Orchestrator struct {
	mu sync.Mutex

	App       string
	Members   int
	Active    int
	Passwords map[string]string
	Deleted   []string
	Destroyed bool
	// WaitTimeouts records the timeout of every WaitForActive call.
	WaitTimeouts []time.Duration

	// Address, when set, is the address of every unit.
	Address string
	// Stuck keeps the active unit count where it is.
	Stuck    bool
	ScaleErr error
	// OnDelete is called with the name of every deleted unit.
	OnDelete func(name string)
}

var _ orchestrator.Orchestrator = &Orchestrator{}

func NewOrchestrator(app string, members int) *Orchestrator {
	return &Orchestrator{
		App:     app,
		Members: members,
		Active:  members,
		Passwords: map[string]string{
			"operator":   "operator-password",
			"monitor":    "monitor-password",
			"prometheus": "prometheus-password",
		},
	}
}

func (o *Orchestrator) Deploy(_ context.Context, units int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if units < 1 {
		return errors.Errorf("cannot deploy %d units", units)
	}
	o.Members = units
	o.Destroyed = false
	return nil
}

func (o *Orchestrator) Scale(_ context.Context, delta int) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ScaleErr != nil {
		return 0, o.ScaleErr
	}
	target := o.Members + delta
	if target < 1 {
		return 0, errors.Errorf("cannot scale %d members by %d", o.Members, delta)
	}
	o.Members = target
	return target, nil
}

func (o *Orchestrator) WaitForActive(_ context.Context, units int, timeout time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.WaitTimeouts = append(o.WaitTimeouts, timeout)
	if !o.Stuck {
		o.Active = o.Members
	}
	if o.Active != units {
		return errors.Errorf("%d units are active, wanted %d", o.Active, units)
	}
	return nil
}

func (o *Orchestrator) Units(context.Context) ([]orchestrator.Unit, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	units := make([]orchestrator.Unit, o.Active)
	for i := range units {
		address := o.Address
		if address == "" {
			address = fmt.Sprintf("10.0.0.%d", i+1)
		}
		units[i] = orchestrator.Unit{
			Name:    fmt.Sprintf("%s-%d", o.App, i),
			Ordinal: i,
			Address: address,
			Host:    o.MemberHost(i),
			Active:  true,
			Phase:   "Running",
		}
	}
	return units, nil
}

func (o *Orchestrator) DeleteUnit(_ context.Context, name string) error {
	o.mu.Lock()
	o.Deleted = append(o.Deleted, name)
	onDelete := o.OnDelete
	o.mu.Unlock()
	if onDelete != nil {
		onDelete(name)
	}
	return nil
}

func (o *Orchestrator) MemberHost(ordinal int) string {
	return fmt.Sprintf("%s-%d.%s-svc:27017", o.App, ordinal, o.App)
}

func (o *Orchestrator) ReplicaSetName() string {
	return o.App
}

func (o *Orchestrator) Password(_ context.Context, user string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	password, ok := o.Passwords[user]
	if !ok {
		return "", errors.Errorf("no password for %s", user)
	}
	return password, nil
}

func (o *Orchestrator) Destroy(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Destroyed = true
	o.Members, o.Active = 0, 0
	return nil
}

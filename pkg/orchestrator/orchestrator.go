package orchestrator

import (
	"context"
	"fmt"
	"time"
)

// Unit is the orchestration view of one replica set member.
type Unit struct {
	Name    string
	Ordinal int
	// Address is the routable address of the unit, used for the exporter and direct pings.
	Address string
	// Host is the name the member is known by inside the replica set.
	Host   string
	Active bool
	Phase  string
}

func (u Unit) String() string {
	return fmt.Sprintf("%s(%s)", u.Name, u.Phase)
}

// Orchestrator deploys and reshapes the replica set workload.
type Orchestrator interface {
	// Deploy creates the workload with the given number of units, or updates it to that many.
	Deploy(ctx context.Context, units int) error
	// Scale requests delta more (or, when negative, fewer) units and returns the new target.
	Scale(ctx context.Context, delta int) (int, error)
	// WaitForActive blocks until exactly units units are active, for at most timeout.
	WaitForActive(ctx context.Context, units int, timeout time.Duration) error
	Units(ctx context.Context) ([]Unit, error)
	DeleteUnit(ctx context.Context, name string) error
	// MemberHost is the replica set host name of the unit with the given ordinal.
	MemberHost(ordinal int) string
	// ReplicaSetName is the name the members are configured with.
	ReplicaSetName() string
	Password(ctx context.Context, user string) (string, error)
	Destroy(ctx context.Context) error
}

// MemberHosts returns the host names of the first n ordinals, the identity set a
// deployment of n units is expected to report.
func MemberHosts(o Orchestrator, n int) []string {
	hosts := make([]string, n)
	for i := 0; i < n; i++ {
		hosts[i] = o.MemberHost(i)
	}
	return hosts
}

// ActiveUnits filters units down to the active ones.
func ActiveUnits(units []Unit) []Unit {
	var active []Unit
	for _, u := range units {
		if u.Active {
			active = append(active, u)
		}
	}
	return active
}

package replicaset

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type MemberState string

const (
	Primary    MemberState = "PRIMARY"
	Secondary  MemberState = "SECONDARY"
	Recovering MemberState = "RECOVERING"
	Startup2   MemberState = "STARTUP2"
	Unknown    MemberState = "UNKNOWN"
	Down       MemberState = "(not reachable/healthy)"
)

var (
	ErrNoPrimary         = errors.New("replica set has no primary")
	ErrMultiplePrimaries = errors.New("replica set has more than one primary")
)

// Member is one entry of the replSetGetStatus members array.
type Member struct {
	ID         int         `bson:"_id"`
	Name       string      `bson:"name"`
	Health     float64     `bson:"health"`
	State      int         `bson:"state"`
	StateStr   MemberState `bson:"stateStr"`
	OptimeDate time.Time   `bson:"optimeDate"`
	Self       bool        `bson:"self,omitempty"`
}

func (m Member) IsHealthy() bool {
	return m.Health >= 1
}

func (m Member) String() string {
	return fmt.Sprintf("%s(%s)", m.Name, m.StateStr)
}

// Status is a snapshot of replSetGetStatus. It is never refreshed in place.
type Status struct {
	Set     string    `bson:"set"`
	Date    time.Time `bson:"date"`
	MyState int       `bson:"myState"`
	Members []Member  `bson:"members"`
}

// Primary returns the single member in PRIMARY state. Zero primaries means an election is
// in progress or the set lost its majority, more than one means the view is not settled.
func (s Status) Primary() (Member, error) {
	primaries := s.inState(Primary)
	switch len(primaries) {
	case 0:
		return Member{}, fmt.Errorf("%w: states are %s", ErrNoPrimary, s.describe())
	case 1:
		return primaries[0], nil
	default:
		return Member{}, fmt.Errorf("%w: %s", ErrMultiplePrimaries, s.describe())
	}
}

func (s Status) Secondaries() []Member {
	return s.inState(Secondary)
}

// Hosts returns the name of every member, in replica set order.
func (s Status) Hosts() []string {
	hosts := make([]string, len(s.Members))
	for i, m := range s.Members {
		hosts[i] = m.Name
	}
	return hosts
}

func (s Status) Member(host string) (Member, bool) {
	for _, m := range s.Members {
		if m.Name == host {
			return m, true
		}
	}
	return Member{}, false
}

// Lag is how far member's last applied operation trails the primary's. It is never negative.
func (s Status) Lag(member Member) (time.Duration, error) {
	primary, err := s.Primary()
	if err != nil {
		return 0, err
	}
	lag := primary.OptimeDate.Sub(member.OptimeDate)
	if lag < 0 {
		return 0, nil
	}
	return lag, nil
}

type LaggedMember struct {
	Member
	Lag time.Duration
}

// SecondariesByLag returns the secondaries ordered from the most to the least caught up.
func (s Status) SecondariesByLag() ([]LaggedMember, error) {
	secondaries := s.Secondaries()
	lagged := make([]LaggedMember, 0, len(secondaries))
	for _, m := range secondaries {
		lag, err := s.Lag(m)
		if err != nil {
			return nil, err
		}
		lagged = append(lagged, LaggedMember{Member: m, Lag: lag})
	}
	sort.SliceStable(lagged, func(i, j int) bool {
		return lagged[i].Lag < lagged[j].Lag
	})
	return lagged, nil
}

func (s Status) inState(state MemberState) []Member {
	var members []Member
	for _, m := range s.Members {
		if m.StateStr == state {
			members = append(members, m)
		}
	}
	return members
}

func (s Status) describe() string {
	parts := make([]string, len(s.Members))
	for i, m := range s.Members {
		parts[i] = m.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Comparison is the difference between the members a deployment should have and the
// members the replica set reports.
type Comparison struct {
	Missing []string
	Extra   []string
}

func (c Comparison) Equal() bool {
	return len(c.Missing) == 0 && len(c.Extra) == 0
}

func (c Comparison) String() string {
	return fmt.Sprintf("missing %v, unexpected %v", c.Missing, c.Extra)
}

// CompareMembers compares expected host names with the members in status, as sets.
func CompareMembers(expected []string, status Status) Comparison {
	reported := map[string]bool{}
	for _, h := range status.Hosts() {
		reported[h] = true
	}
	wanted := map[string]bool{}
	c := Comparison{}
	for _, h := range expected {
		wanted[h] = true
		if !reported[h] {
			c.Missing = append(c.Missing, h)
		}
	}
	for _, h := range status.Hosts() {
		if !wanted[h] {
			c.Extra = append(c.Extra, h)
		}
	}
	sort.Strings(c.Missing)
	sort.Strings(c.Extra)
	return c
}

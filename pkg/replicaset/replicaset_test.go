package replicaset

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func member(id int, state MemberState, optimeOffset time.Duration) Member {
	return Member{
		ID:         id,
		Name:       hostFor(id),
		Health:     1,
		StateStr:   state,
		OptimeDate: baseTime.Add(optimeOffset),
	}
}

func hostFor(id int) string {
	return []string{
		"mongodb-k8s-0.mongodb-k8s-svc:27017",
		"mongodb-k8s-1.mongodb-k8s-svc:27017",
		"mongodb-k8s-2.mongodb-k8s-svc:27017",
		"mongodb-k8s-3.mongodb-k8s-svc:27017",
	}[id]
}

func TestStatus_Primary(t *testing.T) {
	t.Run("exactly one primary", func(t *testing.T) {
		s := Status{Members: []Member{member(0, Secondary, 0), member(1, Primary, 0), member(2, Secondary, 0)}}
		p, err := s.Primary()
		require.NoError(t, err)
		assert.Equal(t, hostFor(1), p.Name)
	})
	t.Run("no primary", func(t *testing.T) {
		s := Status{Members: []Member{member(0, Secondary, 0), member(1, Secondary, 0)}}
		_, err := s.Primary()
		assert.ErrorIs(t, err, ErrNoPrimary)
	})
	t.Run("two primaries", func(t *testing.T) {
		s := Status{Members: []Member{member(0, Primary, 0), member(1, Primary, 0)}}
		_, err := s.Primary()
		assert.ErrorIs(t, err, ErrMultiplePrimaries)
	})
}

func TestStatus_Lag(t *testing.T) {
	s := Status{Members: []Member{
		member(0, Primary, 0),
		member(1, Secondary, -3*time.Second),
		member(2, Secondary, -time.Second),
		member(3, Secondary, time.Second),
	}}

	lag, err := s.Lag(s.Members[1])
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, lag)

	lag, err = s.Lag(s.Members[3])
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), lag, "lag is never negative")

	lagged, err := s.SecondariesByLag()
	require.NoError(t, err)
	require.Len(t, lagged, 3)
	assert.Equal(t, hostFor(3), lagged[0].Name)
	assert.Equal(t, hostFor(2), lagged[1].Name)
	assert.Equal(t, hostFor(1), lagged[2].Name)
}

func TestStatus_SecondariesByLag_NeedsPrimary(t *testing.T) {
	s := Status{Members: []Member{member(0, Secondary, 0), member(1, Secondary, 0)}}
	_, err := s.SecondariesByLag()
	assert.ErrorIs(t, err, ErrNoPrimary)
}

func TestStatus_MemberAndHosts(t *testing.T) {
	s := Status{Members: []Member{member(0, Primary, 0), member(1, Secondary, 0)}}
	assert.Equal(t, []string{hostFor(0), hostFor(1)}, s.Hosts())

	m, ok := s.Member(hostFor(1))
	assert.True(t, ok)
	assert.Equal(t, Secondary, m.StateStr)

	_, ok = s.Member(hostFor(2))
	assert.False(t, ok)
}

func TestCompareMembers(t *testing.T) {
	s := Status{Members: []Member{member(0, Primary, 0), member(1, Secondary, 0), member(3, Secondary, 0)}}

	c := CompareMembers([]string{hostFor(1), hostFor(0), hostFor(3)}, s)
	assert.True(t, c.Equal(), "order does not matter")

	c = CompareMembers([]string{hostFor(0), hostFor(1), hostFor(2)}, s)
	assert.False(t, c.Equal())
	assert.Equal(t, []string{hostFor(2)}, c.Missing)
	assert.Equal(t, []string{hostFor(3)}, c.Extra)
}

// fakeRunner answers commands from canned replies. A reply list is consumed one entry per
// call and the last entry repeats.
type fakeRunner struct {
	mu      sync.Mutex
	replies map[string][]interface{}
	calls   map[string]int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{replies: map[string][]interface{}{}, calls: map[string]int{}}
}

func (f *fakeRunner) on(command string, replies ...interface{}) *fakeRunner {
	f.replies[command] = replies
	return f
}

func (f *fakeRunner) RunCommand(_ context.Context, db string, cmd interface{}) (bson.Raw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if db != "admin" {
		return nil, errors.New("unexpected database " + db)
	}
	name := cmd.(bson.D)[0].Key
	replies, ok := f.replies[name]
	if !ok {
		return nil, errors.New("no such command: " + name)
	}
	idx := f.calls[name]
	if idx >= len(replies) {
		idx = len(replies) - 1
	}
	f.calls[name]++
	switch reply := replies[idx].(type) {
	case error:
		return nil, reply
	default:
		return bson.Marshal(reply)
	}
}

func newTestInspector(runner CommandRunner) Inspector {
	return NewInspector(runner, zap.NewNop().Sugar())
}

func TestInspector_Status(t *testing.T) {
	runner := newFakeRunner().on("replSetGetStatus", bson.M{
		"set":     "mongodb-k8s",
		"myState": 1,
		"members": []bson.M{
			{"_id": 0, "name": hostFor(0), "health": 1.0, "state": 1, "stateStr": "PRIMARY", "optimeDate": baseTime, "self": true},
			{"_id": 1, "name": hostFor(1), "health": 1.0, "state": 2, "stateStr": "SECONDARY", "optimeDate": baseTime.Add(-time.Second)},
		},
		"ok": 1,
	})

	status, err := newTestInspector(runner).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mongodb-k8s", status.Set)
	require.Len(t, status.Members, 2)
	assert.True(t, status.Members[0].Self)
	assert.True(t, status.Members[1].IsHealthy())

	lagged, err := status.SecondariesByLag()
	require.NoError(t, err)
	assert.Equal(t, time.Second, lagged[0].Lag)
}

func TestInspector_ConfigHelloAndVersion(t *testing.T) {
	runner := newFakeRunner().
		on("replSetGetConfig", bson.M{"config": bson.M{
			"_id":     "mongodb-k8s",
			"version": 4,
			"members": []bson.M{{"_id": 0, "host": hostFor(0), "priority": 1.0, "votes": 1}},
		}, "ok": 1}).
		on("hello", bson.M{"setName": "mongodb-k8s", "primary": hostFor(0), "isWritablePrimary": true, "topologyVersion": bson.M{"counter": int64(3)}}).
		on("buildInfo", bson.M{"version": "6.0.5", "ok": 1})

	inspector := newTestInspector(runner)
	ctx := context.Background()

	cfg, err := inspector.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Version)
	assert.Equal(t, []string{hostFor(0)}, cfg.Hosts())

	hello, err := inspector.Hello(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mongodb-k8s", hello.Get("setName").Str())
	assert.Equal(t, hostFor(0), hello.Get("primary").Str())
	assert.True(t, hello.Get("isWritablePrimary").Bool())
	assert.Equal(t, int64(3), hello.Get("topologyVersion.counter").Int64())

	v, err := inspector.RequireMinimumVersion(ctx, "5.0.0")
	require.NoError(t, err)
	assert.Equal(t, "6.0.5", v.String())

	_, err = inspector.RequireMinimumVersion(ctx, "7.0")
	assert.Error(t, err)
}

func statusWith(members ...Member) bson.M {
	docs := make([]bson.M, len(members))
	for i, m := range members {
		docs[i] = bson.M{"_id": m.ID, "name": m.Name, "health": m.Health, "stateStr": string(m.StateStr), "optimeDate": m.OptimeDate}
	}
	return bson.M{"set": "mongodb-k8s", "members": docs, "ok": 1}
}

func TestInspector_WaitForNewPrimary(t *testing.T) {
	runner := newFakeRunner().on("replSetGetStatus",
		statusWith(member(0, Primary, 0), member(1, Secondary, 0)),
		errors.New("connection reset"),
		statusWith(member(0, Unknown, 0), member(1, Secondary, 0)),
		statusWith(member(0, Unknown, 0), member(1, Primary, 0)),
	)

	p, err := newTestInspector(runner).WaitForNewPrimary(context.Background(), hostFor(0), time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, hostFor(1), p.Name)
}

func TestInspector_WaitForNewPrimary_TimesOut(t *testing.T) {
	runner := newFakeRunner().on("replSetGetStatus", statusWith(member(0, Primary, 0), member(1, Secondary, 0)))
	_, err := newTestInspector(runner).WaitForNewPrimary(context.Background(), hostFor(0), time.Millisecond, 20*time.Millisecond)
	assert.Error(t, err)
}

func TestInspector_WaitForSettledPrimary(t *testing.T) {
	runner := newFakeRunner().on("replSetGetStatus",
		statusWith(member(0, Primary, 0), member(1, Primary, 0)),
		statusWith(member(0, Secondary, 0), member(1, Primary, 0)),
	)
	p, err := newTestInspector(runner).WaitForSettledPrimary(context.Background(), time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, hostFor(1), p.Name)
}

func TestInspector_WaitForMemberState(t *testing.T) {
	runner := newFakeRunner().on("replSetGetStatus",
		statusWith(member(0, Unknown, 0), member(1, Primary, 0)),
		statusWith(member(0, Recovering, 0), member(1, Primary, 0)),
		statusWith(member(0, Secondary, 0), member(1, Primary, 0)),
	)
	err := newTestInspector(runner).WaitForMemberState(context.Background(), hostFor(0), Secondary, time.Millisecond, time.Second)
	assert.NoError(t, err)
}

func TestInspector_WaitForMembers(t *testing.T) {
	runner := newFakeRunner().on("replSetGetStatus",
		statusWith(member(0, Primary, 0), member(1, Secondary, 0)),
		statusWith(member(0, Primary, 0), member(1, Secondary, 0), member(2, Secondary, 0)),
	)
	expected := []string{hostFor(0), hostFor(1), hostFor(2)}
	c, err := newTestInspector(runner).WaitForMembers(context.Background(), expected, time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.True(t, c.Equal())

	runner = newFakeRunner().on("replSetGetStatus", statusWith(member(0, Primary, 0)))
	c, err = newTestInspector(runner).WaitForMembers(context.Background(), expected, time.Millisecond, 20*time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, []string{hostFor(1), hostFor(2)}, c.Missing)
}

package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongodb/mongodb-replicaset-verifier/pkg/orchestrator"
)

func TestOrchestrator(t *testing.T) {
	ctx := context.Background()
	o := NewOrchestrator("mongodb-k8s", 3)

	target, err := o.Scale(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, target)

	units, err := o.Units(ctx)
	require.NoError(t, err)
	assert.Len(t, units, 3, "units only change once they are active")

	require.NoError(t, o.WaitForActive(ctx, 5, time.Minute))
	units, err = o.Units(ctx)
	require.NoError(t, err)
	assert.Len(t, units, 5)
	assert.Equal(t, "mongodb-k8s-4.mongodb-k8s-svc:27017", units[4].Host)
	assert.Equal(t, orchestrator.MemberHosts(o, 2), []string{units[0].Host, units[1].Host})

	o.Stuck = true
	_, err = o.Scale(ctx, -2)
	require.NoError(t, err)
	assert.Error(t, o.WaitForActive(ctx, 3, time.Minute))
	assert.Equal(t, []time.Duration{time.Minute, time.Minute}, o.WaitTimeouts)

	_, err = o.Scale(ctx, -3)
	assert.Error(t, err)
}

package secret

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
)

func TestEnsureKey_KeepsExistingValue(t *testing.T) {
	ctx := context.Background()
	c := fake.NewClientBuilder().Build()
	key := types.NamespacedName{Name: "monitor-password", Namespace: "test"}

	first := Builder().SetName(key.Name).SetNamespace(key.Namespace).SetField("password", "first").Build()
	require.NoError(t, EnsureKey(ctx, c, first, "password"))

	second := Builder().SetName(key.Name).SetNamespace(key.Namespace).SetField("password", "second").Build()
	require.NoError(t, EnsureKey(ctx, c, second, "password"))

	val, err := ReadKey(ctx, c, "password", key)
	require.NoError(t, err)
	assert.Equal(t, "first", val)
}

func TestEnsureKey_AddsMissingKey(t *testing.T) {
	ctx := context.Background()
	existing := Builder().SetName("s").SetNamespace("test").SetField("other", "x").Build()
	c := fake.NewClientBuilder().WithObjects(&existing).Build()

	desired := Builder().SetName("s").SetNamespace("test").SetField("password", "pw").Build()
	require.NoError(t, EnsureKey(ctx, c, desired, "password"))

	data, err := ReadStringData(ctx, c, types.NamespacedName{Name: "s", Namespace: "test"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"other": "x", "password": "pw"}, data)
}

func TestReadKey_MissingKey(t *testing.T) {
	ctx := context.Background()
	s := Builder().SetName("s").SetNamespace("test").SetField("a", "b").Build()
	c := fake.NewClientBuilder().WithObjects(&s).Build()

	_, err := ReadKey(ctx, c, "password", types.NamespacedName{Name: "s", Namespace: "test"})
	assert.Error(t, err)
}

func TestHasAllKeys(t *testing.T) {
	s := corev1.Secret{Data: map[string][]byte{"a": nil, "b": nil}}
	assert.True(t, HasAllKeys(s, "a", "b"))
	assert.False(t, HasAllKeys(s, "a", "c"))
}

package envvar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("env1", "val1")

	val := GetEnvOrDefault("env1", "defaultVal1")
	assert.Equal(t, "val1", val)

	val2 := GetEnvOrDefault("env2", "defaultVal2")
	assert.Equal(t, "defaultVal2", val2)
}

func TestReadBool(t *testing.T) {
	t.Setenv("RSVERIFY_TEST_BOOL", " TRUE ")
	assert.True(t, ReadBool("RSVERIFY_TEST_BOOL"))

	t.Setenv("RSVERIFY_TEST_BOOL", "no")
	assert.False(t, ReadBool("RSVERIFY_TEST_BOOL"))

	assert.False(t, ReadBool("RSVERIFY_TEST_UNSET_BOOL"))
}

func TestWithPrefix(t *testing.T) {
	t.Setenv("RSVERIFYTEST_NAMESPACE", "ns")
	t.Setenv("RSVERIFYTEST_POLL_INTERVAL", "2s")
	t.Setenv("RSVERIFYTEST_", "ignored")

	vars := WithPrefix("RSVERIFYTEST_")
	assert.Equal(t, map[string]string{"namespace": "ns", "poll_interval": "2s"}, vars)
	assert.Equal(t, []string{"namespace", "poll_interval"}, Names(vars))
}

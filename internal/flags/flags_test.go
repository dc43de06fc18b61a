package flags

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclare(t *testing.T) {
	t.Cleanup(viper.Reset)

	set := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, Declare(set, []Def[string]{
		{"token-id", "", "", "Token ID"},
		{"flag-test-url", "flagtest.url", "http://default", "URL"},
	}))
	require.NoError(t, Declare(set, []Def[int64]{{"flag-test-gwei", "flagtest.gwei", 6, "gwei"}}))
	require.NoError(t, Declare(set, []Def[time.Duration]{{"flag-test-timeout", "flagtest.timeout", time.Minute, "timeout"}}))
	require.NoError(t, Declare(set, []Def[bool]{{"flag-test-wait", "", false, "wait"}}))

	require.NoError(t, set.Parse([]string{"--flag-test-gwei=9", "--token-id=7", "--flag-test-wait"}))

	assert.Equal(t, "http://default", viper.GetString("flagtest.url"))
	assert.Equal(t, int64(9), viper.GetInt64("flagtest.gwei"))
	assert.Equal(t, time.Minute, viper.GetDuration("flagtest.timeout"))

	tokenID, err := set.GetString("token-id")
	require.NoError(t, err)
	assert.Equal(t, "7", tokenID)

	wait, err := set.GetBool("flag-test-wait")
	require.NoError(t, err)
	assert.True(t, wait)
}

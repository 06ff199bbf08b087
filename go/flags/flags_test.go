package flags

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type redisOpts struct {
	URL string `long:"url" env:"URL" default:"redis://localhost:6379/0"`
}

type testOpts struct {
	Port    int           `long:"port" env:"OGIMAGE_TEST_PORT" default:"3000"`
	Timeout time.Duration `long:"timeout" default:"30s"`
	Redis   *redisOpts    `group:"Redis" namespace:"redis" env-namespace:"REDIS"`
}

func TestParseArgsDefaults(t *testing.T) {
	opts := &testOpts{}
	require.NoError(t, ParseArgs(opts, nil))
	require.Equal(t, 3000, opts.Port)
	require.Equal(t, 30*time.Second, opts.Timeout)
	require.Equal(t, "redis://localhost:6379/0", opts.Redis.URL)
}

func TestParseArgsOverrides(t *testing.T) {
	t.Setenv("OGIMAGE_TEST_PORT", "4000")
	opts := &testOpts{}
	require.NoError(t, ParseArgs(opts, []string{"--redis.url", "redis://cache:6379/1"}))
	require.Equal(t, 4000, opts.Port)
	require.Equal(t, "redis://cache:6379/1", opts.Redis.URL)
}

func TestParseArgsUnknownFlag(t *testing.T) {
	err := ParseArgs(&testOpts{}, []string{"--nope"})
	require.ErrorContains(t, err, "parsing flags")
	require.False(t, IsHelp(err))
}

func TestIsHelp(t *testing.T) {
	err := ParseArgs(&testOpts{}, []string{"--help"})
	require.True(t, IsHelp(err))
}

package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/larkrelay/pkg/logger"
)

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() { logger.Replace(nil) })

	require.NoError(t, ConfigureLogging("debug", "console"))
	require.True(t, logger.Logger().Core().Enabled(-1))

	require.NoError(t, ConfigureLogging("", "json"))
	require.False(t, logger.Logger().Core().Enabled(-1))
}

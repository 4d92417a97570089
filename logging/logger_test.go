package logging

import (
	"io"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestCreateLoggerLevels(t *testing.T) {
	l := CreateLogger("test").(*pkgLogger)
	require.True(t, l.enabled(logger.WARNING))
	require.False(t, l.enabled(logger.INFO))

	l.SetLevel(logger.DEBUG)
	require.True(t, l.enabled(logger.DEBUG))

	require.Panics(t, func() { l.Panicf("boom %d", 1) })
}

func TestSetLevelWhileLogging(t *testing.T) {
	l := CreateLogger("test").(*pkgLogger)
	l.logger.SetOutput(io.Discard)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			l.Debugf("message %d", i)
			l.Infof("message %d", i)
		}
	}()
	for i := 0; i < 1000; i++ {
		if i%2 == 0 {
			l.SetLevel(logger.DEBUG)
		} else {
			l.SetLevel(logger.ERROR)
		}
	}
	<-done
}

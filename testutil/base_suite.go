package testutil

import (
	"os"
	"strconv"
	"time"

	"github.com/stretchr/testify/suite"
)

// DefaultWait bounds every wait in tests, override with TEST_WAIT.
const DefaultWait = 5 * time.Second

type BaseSuite struct {
	suite.Suite
}

func (s *BaseSuite) StrEnv(env string, defaultValue string) string {
	strValue := os.Getenv(env)
	if strValue == "" {
		return defaultValue
	}

	return strValue
}

func (s *BaseSuite) IntEnv(env string, defaultValue int) int {
	strValue := os.Getenv(env)
	if strValue == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(strValue)
	s.Require().NoError(err)
	return i
}

func (s *BaseSuite) DurationEnv(env string, defaultValue time.Duration) time.Duration {
	strValue := os.Getenv(env)
	if strValue == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(strValue)
	s.Require().NoError(err)
	return d
}

func (s *BaseSuite) NowUnixMicro() time.Time {
	return time.Now().Truncate(time.Microsecond)
}

// Await fails the test if ch is not closed in time.
func (s *BaseSuite) Await(ch <-chan struct{}, what string) {
	select {
	case <-ch:
	case <-time.After(s.DurationEnv("TEST_WAIT", DefaultWait)):
		s.FailNow("timed out waiting for " + what)
	}
}

package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	require.Equal(t, "", WrapString("   "))
	require.Equal(t, "short text", WrapString("short   text"))

	long := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(long), "\n") {
		require.LessOrEqual(t, len(line), Wrap)
	}

	word := strings.Repeat("x", Wrap+10)
	require.Equal(t, "a\n"+word+"\nb", WrapString("a "+word+" b"))
}

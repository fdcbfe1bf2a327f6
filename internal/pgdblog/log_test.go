package pgdblog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/pgdblog"
)

func TestLoggerWritesLogfmtLines(t *testing.T) {
	var buf bytes.Buffer
	pgdblog.SetHandler(pgdblog.StreamHandler(&buf))

	l := pgdblog.New("component", "overlay")
	l.Info("hello", "rank", 3)

	out := buf.String()
	require.Contains(t, out, "lvl=INFO")
	require.Contains(t, out, "msg=hello")
	require.Contains(t, out, "component=overlay")
	require.Contains(t, out, "rank=3")
	require.True(t, strings.HasSuffix(out, "\n"))
}

func TestChildLoggerInheritsParentContext(t *testing.T) {
	var buf bytes.Buffer
	pgdblog.SetHandler(pgdblog.StreamHandler(&buf))

	parent := pgdblog.New("service", "frontend")
	child := parent.New("rank", 0)
	child.Warn("narrowed")

	out := buf.String()
	require.Contains(t, out, "service=frontend")
	require.Contains(t, out, "rank=0")
	require.Contains(t, out, "lvl=WARN")
}

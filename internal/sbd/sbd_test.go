package sbd_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/sbd"
)

func TestPolicyRefusesGDBAndPythonScripts(t *testing.T) {
	p, err := sbd.NewPolicy("", nil)
	require.NoError(t, err)

	ok, err := p.Accept("/home/user/script.gdb")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = p.Accept("/home/user/helper.py")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPolicyRefusesSystemPaths(t *testing.T) {
	p, err := sbd.NewPolicy(`ext == ".so"`, nil)
	require.NoError(t, err)

	ok, err := p.Accept("/proc/self/maps")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPolicyAcceptsKnownExecutable(t *testing.T) {
	p, err := sbd.NewPolicy("", []string{"libfoo.so"})
	require.NoError(t, err)

	ok, err := p.Accept("/usr/lib/libfoo.so")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPolicyAcceptsMatchingExpression(t *testing.T) {
	p, err := sbd.NewPolicy(`ext == ".so"`, nil)
	require.NoError(t, err)

	ok, err := p.Accept("/opt/app/libbar.so")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.Accept("/opt/app/libbar.a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRegionRoundTripsPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region.bin")
	r, err := sbd.OpenRegion(path, 256)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, sbd.DirIdle, r.Direction())
	require.NoError(t, r.Write(sbd.DirRequest, []byte("/usr/lib/libfoo.so")))
	require.Equal(t, sbd.DirRequest, r.Direction())
	require.Equal(t, "/usr/lib/libfoo.so", string(r.Read()))

	r.SetIdle()
	require.Equal(t, sbd.DirIdle, r.Direction())
}

func TestSemaphoreTryAcquireIsExclusiveAndNonBlocking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sem.lock")
	s1, err := sbd.OpenSemaphore(path)
	require.NoError(t, err)
	defer s1.Close()

	ok, err := s1.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)

	s2, err := sbd.OpenSemaphore(path)
	require.NoError(t, err)
	defer s2.Close()

	ok, err = s2.TryAcquire()
	require.NoError(t, err)
	require.False(t, ok, "second acquire must not block and must report failure")

	require.NoError(t, s1.Release())
	ok, err = s2.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDedupClaimsFirstRequestOnly(t *testing.T) {
	d := sbd.NewDedup(1 << 16)
	require.True(t, d.ClaimOrJoin("/usr/lib/libfoo.so"))
	require.False(t, d.ClaimOrJoin("/usr/lib/libfoo.so"))

	d.Forget("/usr/lib/libfoo.so")
	require.True(t, d.ClaimOrJoin("/usr/lib/libfoo.so"))
}

func TestPollBackendReadsAndEvaluatesPendingRequest(t *testing.T) {
	regionPath := filepath.Join(t.TempDir(), "region.bin")
	semPath := filepath.Join(t.TempDir(), "sem.lock")
	region, err := sbd.OpenRegion(regionPath, 256)
	require.NoError(t, err)
	defer region.Close()
	sem, err := sbd.OpenSemaphore(semPath)
	require.NoError(t, err)
	defer sem.Close()

	require.NoError(t, sbd.PublishRequest(region, sem, "/usr/lib/libfoo.so"))

	policy, err := sbd.NewPolicy("", []string{"libfoo.so"})
	require.NoError(t, err)

	path, ok, err := sbd.PollBackend(region, sem, policy)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/usr/lib/libfoo.so", path)
}

func TestPollBackendRejectsDisallowedPath(t *testing.T) {
	regionPath := filepath.Join(t.TempDir(), "region.bin")
	semPath := filepath.Join(t.TempDir(), "sem.lock")
	region, err := sbd.OpenRegion(regionPath, 256)
	require.NoError(t, err)
	defer region.Close()
	sem, err := sbd.OpenSemaphore(semPath)
	require.NoError(t, err)
	defer sem.Close()

	require.NoError(t, sbd.PublishRequest(region, sem, "/home/user/evil.py"))

	policy, err := sbd.NewPolicy("", nil)
	require.NoError(t, err)

	_, ok, err := sbd.PollBackend(region, sem, policy)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, sbd.ErrorToken, string(region.Read()))
}

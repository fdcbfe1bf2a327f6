package mi_test

import (
	"math/rand"
	"strings"
	"testing"

	gofuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/mi"
)

func TestParseResultWithNestedTuple(t *testing.T) {
	line := `^done,bkpt={number="1",type="breakpoint",enabled="y",addr="0x400500",func="main",file="a.c",line="10"}`
	rec := mi.Parse(line)

	require.Equal(t, mi.TypeResult, rec.Type)
	require.True(t, rec.HasSubtype("done"))

	bkpt, ok := rec.BreakpointField()
	require.True(t, ok)
	require.Equal(t, "1", bkpt.Number)
	require.Equal(t, "10", bkpt.Line)

	rec2 := mi.Parse(line)
	require.True(t, rec.Equal(rec2))
	require.Equal(t, rec.CacheKey(), rec2.CacheKey())
}

func TestParseStoppedBreakpointHit(t *testing.T) {
	line := `*stopped,reason="breakpoint-hit",bkptno="1",thread-id="1",stopped-threads="all",core="0"`
	rec := mi.Parse(line)

	require.Equal(t, mi.TypeAsyncExec, rec.Type)
	require.True(t, rec.HasSubtype("stopped"))
	require.True(t, rec.HasSubtype("breakpoint-hit"))

	tid, ok := rec.ThreadID()
	require.True(t, ok)
	require.Equal(t, "1", tid)

	threads, ok := rec.StoppedThreads()
	require.True(t, ok)
	require.Equal(t, []string{"all"}, threads)
}

func TestParseToken(t *testing.T) {
	rec := mi.Parse(`42^done`)
	require.NotNil(t, rec.Token)
	require.Equal(t, int64(42), *rec.Token)
}

func TestParseStreamRecords(t *testing.T) {
	for _, tc := range []struct {
		line string
		typ  mi.RecordType
	}{
		{`~"hello\n"`, mi.TypeStreamConsole},
		{`@"target output"`, mi.TypeStreamTarget},
		{`&"logged line"`, mi.TypeStreamLog},
	} {
		rec := mi.Parse(tc.line)
		require.Equal(t, tc.typ, rec.Type)
		require.True(t, rec.Type.IsStream())
	}
}

func TestListOfTuples(t *testing.T) {
	rec := mi.Parse(`^done,threads=[{id="1",state="stopped"},{id="2",state="running"}]`)
	require.Equal(t, mi.TypeResult, rec.Type)
	threads, ok := rec.Fields["threads"].(mi.ListValue)
	require.True(t, ok)
	require.Len(t, threads, 2)
}

func TestListReclassifiedAsResultList(t *testing.T) {
	// No enclosing tuples: the first unquoted '=' at depth 0 appears
	// before any top-level comma, so the whole [...] body is
	// reclassified as a result list rather than a bare value list.
	rec := mi.Parse(`^done,payload=[level="0",addr="0x1",level="1"]`)
	tuple, ok := rec.Fields["payload"].(mi.TupleValue)
	require.True(t, ok)
	_, hasAddr := tuple["addr"]
	require.True(t, hasAddr)
	levels, ok := tuple["level"].(mi.ListValue)
	require.True(t, ok)
	require.Len(t, levels, 2)
}

func TestBareValueList(t *testing.T) {
	rec := mi.Parse(`^done,groups=["i1","i2","i3"]`)
	list, ok := rec.Fields["groups"].(mi.ListValue)
	require.True(t, ok)
	require.Len(t, list, 3)
	for _, v := range list {
		_, ok := v.(mi.StringValue)
		require.True(t, ok)
	}
}

func TestRepeatedNamesCollapseToList(t *testing.T) {
	rec := mi.Parse(`^done,item={level="0"},item={level="1"},item={level="2"}`)
	v, ok := rec.Fields["item"].(mi.ListValue)
	require.True(t, ok)
	require.Len(t, v, 3)
}

func TestQuoteEscapeDoesNotTerminateString(t *testing.T) {
	rec := mi.Parse(`^done,msg="say \"hi\" now"`)
	s, ok := rec.Fields["msg"].(mi.StringValue)
	require.True(t, ok)
	require.Equal(t, `say "hi" now`, string(s))
}

func TestUnbalancedInputBecomesUnknown(t *testing.T) {
	for _, line := range []string{
		`^done,bkpt={number="1"`,     // unbalanced brace
		`^done,groups=["i1","i2"`,    // unbalanced bracket
		`^done,msg="unterminated`,    // unterminated string
		`^done,=bad`,                 // stray token, no name
		`not-a-valid-mi-line at all`, // no symbol at all
	} {
		rec := mi.Parse(line)
		require.Equal(t, mi.TypeUnknown, rec.Type, "line: %s", line)
		require.Equal(t, line, rec.Text)
	}
}

func TestRoundTripFormatReparse(t *testing.T) {
	lines := []string{
		`^done,bkpt={number="1",type="breakpoint",enabled="y",addr="0x400500",func="main",file="a.c",line="10"}`,
		`*stopped,reason="breakpoint-hit",bkptno="1",thread-id="1",stopped-threads="all",core="0"`,
		`^done,groups=["i1","i2","i3"]`,
		`~"hello world\n"`,
		`7^done`,
	}
	for _, line := range lines {
		rec := mi.Parse(line)
		reparsed := mi.Parse(rec.Format())
		require.True(t, rec.Equal(reparsed), "round trip mismatch for %q -> %q", line, rec.Format())
	}
}

func TestIdempotence(t *testing.T) {
	lines := []string{
		`^done,bkpt={number="1",line="10"}`,
		`*stopped,reason="signal-received",signal-name="SIGSEGV"`,
	}
	for _, line := range lines {
		once := mi.Parse(line)
		twice := mi.Parse(once.Format())
		require.True(t, once.Equal(twice))
	}
}

// TestFuzzRobustness feeds pseudo-random byte garbage (and mutated valid
// lines) through the parser and requires it never panics and always
// reports either a well-typed record or an unknown one -- the parser's
// "never raises" contract.
func TestFuzzRobustness(t *testing.T) {
	fz := gofuzz.New().NilChance(0).NumElements(1, 40)
	rng := rand.New(rand.NewSource(7))

	seed := []string{
		`^done,bkpt={number="1",line="10"}`,
		`*stopped,reason="breakpoint-hit",thread-id="1"`,
		`~"console text"`,
	}

	for i := 0; i < 500; i++ {
		var raw string
		fz.Fuzz(&raw)
		require.NotPanics(t, func() { mi.Parse(raw) })

		base := seed[rng.Intn(len(seed))]
		mutated := mutate(base, rng)
		require.NotPanics(t, func() { mi.Parse(mutated) })
	}
}

func mutate(s string, rng *rand.Rand) string {
	if len(s) == 0 {
		return s
	}
	b := []byte(s)
	n := rng.Intn(3) + 1
	for i := 0; i < n; i++ {
		op := rng.Intn(3)
		pos := rng.Intn(len(b))
		switch op {
		case 0:
			b[pos] = byte(rng.Intn(128))
		case 1:
			b = append(b[:pos], b[pos+1:]...)
		case 2:
			b = append(b[:pos], append([]byte{byte(rng.Intn(128))}, b[pos:]...)...)
		}
		if len(b) == 0 {
			break
		}
	}
	return strings.TrimSpace(string(b))
}

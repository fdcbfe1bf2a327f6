package backend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/backend"
	"github.com/tos-network/pgdb/internal/mi"
)

// scriptedGDB replays canned MI reply lines against the token each Send
// call was assigned, standing in for a live GDB connection.
type scriptedGDB struct {
	replies []string
	next    int64
	queue   []mi.Record
}

func (s *scriptedGDB) Send(command string) (int64, error) {
	tok := s.next
	s.next++
	if len(s.replies) > 0 {
		rec := mi.Parse(s.replies[0])
		s.replies = s.replies[1:]
		rec.Token = &tok
		s.queue = append(s.queue, rec)
	}
	return tok, nil
}

func (s *scriptedGDB) Next() (mi.Record, bool) {
	if len(s.queue) == 0 {
		return mi.Record{}, false
	}
	rec := s.queue[0]
	s.queue = s.queue[1:]
	return rec, true
}

func TestProviderCreateRootParsesReply(t *testing.T) {
	gdb := &scriptedGDB{replies: []string{`^done,name="var1",numchild="3",type="struct S"`}}
	p := backend.NewMIProvider(gdb, gdb, nil)

	name, numChild, dynamic, err := p.CreateRoot("obj")
	require.NoError(t, err)
	require.Equal(t, "var1", name)
	require.Equal(t, 3, numChild)
	require.False(t, dynamic)
}

func TestProviderListChildrenUnwrapsChildTuples(t *testing.T) {
	gdb := &scriptedGDB{replies: []string{
		`^done,numchild="2",children=[child={name="var1.a",exp="a",numchild="0",value="1",type="int"},child={name="var1.b",exp="b",numchild="1",type="struct T"}]`,
	}}
	p := backend.NewMIProvider(gdb, gdb, nil)

	kids, err := p.ListChildren("var1")
	require.NoError(t, err)
	require.Len(t, kids, 2)
	require.Equal(t, "a", kids[0].Expression)
	require.Equal(t, "1", kids[0].Value)
	require.Equal(t, 1, kids[1].NumChild)
}

func TestProviderUpdateTranslatesChangelist(t *testing.T) {
	gdb := &scriptedGDB{replies: []string{
		`^done,changelist=[{name="var1",value="5",in_scope="true",type_changed="false"},{name="var2",in_scope="false",type_changed="false"}]`,
	}}
	p := backend.NewMIProvider(gdb, gdb, nil)

	entries, err := p.Update()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "var1", entries[0].Name)
	require.Equal(t, "5", entries[0].NewValue)
	require.False(t, entries[0].OutOfScope)
	require.True(t, entries[1].OutOfScope)
}

func TestProviderUpdateEmptyChangelist(t *testing.T) {
	gdb := &scriptedGDB{replies: []string{`^done,changelist=[]`}}
	p := backend.NewMIProvider(gdb, gdb, nil)

	entries, err := p.Update()
	require.NoError(t, err)
	require.Empty(t, entries)
}

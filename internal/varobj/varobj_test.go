package varobj_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/varobj"
)

func TestSplitDottedName(t *testing.T) {
	parts, err := varobj.SplitDottedName("a.b.c")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, parts)
}

type fakeProvider struct {
	roots    map[string]ChildSpec
	children map[string][]varobj.ChildDesc
}

type ChildSpec struct {
	GdbName  string
	NumChild int
	Dynamic  bool
}

func (f *fakeProvider) CreateRoot(expr string) (string, int, bool, error) {
	spec := f.roots[expr]
	return spec.GdbName, spec.NumChild, spec.Dynamic, nil
}

func (f *fakeProvider) ListChildren(gdbName string) ([]varobj.ChildDesc, error) {
	return f.children[gdbName], nil
}

func TestExploreDescendsToTargetName(t *testing.T) {
	p := &fakeProvider{
		roots: map[string]ChildSpec{
			"obj": {GdbName: "var1", NumChild: 2},
		},
		children: map[string][]varobj.ChildDesc{
			"var1": {
				{Name: "var1.a", Expression: "a", NumChild: 0, Value: "1"},
				{Name: "var1.b", Expression: "b", NumChild: 1, Value: ""},
			},
			"var1.b": {
				{Name: "var1.b.c", Expression: "c", NumChild: 0, Value: "42"},
			},
		},
	}

	tree := varobj.NewTree()
	got, err := varobj.Explore(tree, p, "obj.b.c", varobj.Limits{MaxDepth: 5})
	require.NoError(t, err)
	require.Equal(t, "42", got.Value)

	again, err := varobj.Explore(tree, p, "obj.b.c", varobj.Limits{MaxDepth: 5})
	require.NoError(t, err)
	require.Same(t, got, again)
}

func TestExploreStopsAtLeafWithNoChildren(t *testing.T) {
	p := &fakeProvider{
		roots: map[string]ChildSpec{
			"obj": {GdbName: "var1", NumChild: 1},
		},
		children: map[string][]varobj.ChildDesc{
			"var1": {
				{Name: "var1.leaf", Expression: "leaf", NumChild: 0, Value: "x"},
			},
		},
	}
	tree := varobj.NewTree()
	_, err := varobj.Explore(tree, p, "obj.leaf", varobj.Limits{MaxDepth: 5})
	require.NoError(t, err)

	leaf, ok := tree.Lookup("obj.leaf")
	require.True(t, ok)
	require.Empty(t, leaf.Children)
}

func TestExplorePseudoChildrenAreInlinedAndBypassDepthCap(t *testing.T) {
	p := &fakeProvider{
		roots: map[string]ChildSpec{
			"obj": {GdbName: "var1", NumChild: 1},
		},
		children: map[string][]varobj.ChildDesc{
			"var1": {
				{Name: "var1.public", Expression: "public", NumChild: 1},
			},
			"var1.public": {
				{Name: "var1.public.field", Expression: "field", NumChild: 0, Value: "7"},
			},
		},
	}
	tree := varobj.NewTree()
	// The field nests under "public" on the GDB side but resolves by its
	// inlined name: the pseudo segment never appears in the dotted path.
	// MaxDepth 0 also proves the pseudo hop is exempt from the depth cap.
	got, err := varobj.Explore(tree, p, "obj.field", varobj.Limits{MaxDepth: 0})
	require.NoError(t, err)
	require.Equal(t, "7", got.Value)

	_, ok := tree.Lookup("obj.field")
	require.True(t, ok)
	_, ok = tree.Lookup("obj.public")
	require.False(t, ok, "pseudo segment must not be indexed as a path")
}

func TestDeleteRemovesInlinedPseudoSubtree(t *testing.T) {
	p := &fakeProvider{
		roots: map[string]ChildSpec{
			"obj": {GdbName: "var1", NumChild: 1},
		},
		children: map[string][]varobj.ChildDesc{
			"var1": {
				{Name: "var1.public", Expression: "public", NumChild: 1},
			},
			"var1.public": {
				{Name: "var1.public.field", Expression: "field", NumChild: 0, Value: "7"},
			},
		},
	}
	tree := varobj.NewTree()
	_, err := varobj.Explore(tree, p, "obj.field", varobj.Limits{MaxDepth: 0})
	require.NoError(t, err)

	tree.Delete("obj")
	_, ok := tree.Lookup("obj")
	require.False(t, ok)
	_, ok = tree.Lookup("obj.field")
	require.False(t, ok, "inlined children must be removed with their parent")
}

func TestExploreCapsInitialListingAtMaxChildren(t *testing.T) {
	children := make([]varobj.ChildDesc, 200)
	for i := range children {
		children[i] = varobj.ChildDesc{
			Name:       "var1." + string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Expression: string(rune('a'+i%26)) + string(rune('0'+i/26)),
			NumChild:   0,
		}
	}
	p := &fakeProvider{
		roots: map[string]ChildSpec{
			"obj": {GdbName: "var1", NumChild: 200},
		},
		children: map[string][]varobj.ChildDesc{"var1": children},
	}

	tree := varobj.NewTree()
	// "h2" is the 60th entry in iteration order, so by the time Explore
	// finds it every other entry within the max_children cap has already
	// been attached.
	_, err := varobj.Explore(tree, p, "obj.h2", varobj.Limits{MaxDepth: 5})
	require.NoError(t, err)

	root, ok := tree.Lookup("obj")
	require.True(t, ok)
	require.Len(t, root.Children, 60)
	require.True(t, root.ChildrenEnumerated)
	require.True(t, root.MoreChildren)

	expanded, err := varobj.ExpandVarObj(tree, p, "obj")
	require.NoError(t, err)
	require.Len(t, expanded.Children, 200)
	require.False(t, expanded.MoreChildren)
}

func TestExploreAttachesWideFanOutButDoesNotDescend(t *testing.T) {
	// 200 expandable children of "obj" -- rule (d) must not stop any of them
	// from being attached (subject only to the max_children cap), but must
	// stop all of them from being pushed onto the DFS stack for further
	// descent, since the listing reported more than the 128-sibling cap.
	children := make([]varobj.ChildDesc, 200)
	grandchildren := map[string][]varobj.ChildDesc{}
	for i := range children {
		name := "var1." + string(rune('a'+i%26)) + string(rune('0'+i/26))
		children[i] = varobj.ChildDesc{
			Name:       name,
			Expression: string(rune('a'+i%26)) + string(rune('0'+i/26)),
			NumChild:   1,
		}
		grandchildren[name] = []varobj.ChildDesc{
			{Name: name + ".only", Expression: "only", NumChild: 0, Value: "1"},
		}
	}
	p := &fakeProvider{
		roots: map[string]ChildSpec{
			"obj": {GdbName: "var1", NumChild: 200},
		},
		children: grandchildren,
	}
	p.children["var1"] = children

	tree := varobj.NewTree()
	limits := varobj.Limits{MaxDepth: 5, MaxChildren: 200}
	_, err := varobj.Explore(tree, p, "obj.missing", limits)
	require.Error(t, err)

	root, ok := tree.Lookup("obj")
	require.True(t, ok)
	require.Len(t, root.Children, 200)
	require.False(t, root.MoreChildren)
	for _, c := range root.Children {
		require.Empty(t, c.Children, "child %q should not have been descended into", c.Expression)
	}
}

func TestApplyChangelistDeletesOutOfScope(t *testing.T) {
	tree := varobj.NewTree()
	tree.AttachRoot("obj", &varobj.VarObj{Name: "var1", Expression: "obj"})

	varobj.ApplyChangelist(tree, map[string]string{"var1": "obj"}, []varobj.ChangeEntry{
		{Name: "var1", OutOfScope: true},
	})

	_, ok := tree.Lookup("obj")
	require.False(t, ok)
}

func TestApplyChangelistUpdatesValue(t *testing.T) {
	tree := varobj.NewTree()
	tree.AttachRoot("obj", &varobj.VarObj{Name: "var1", Expression: "obj", Value: "1"})

	varobj.ApplyChangelist(tree, map[string]string{"var1": "obj"}, []varobj.ChangeEntry{
		{Name: "var1", NewValue: "2"},
	})

	v, ok := tree.Lookup("obj")
	require.True(t, ok)
	require.Equal(t, "2", v.Value)
}

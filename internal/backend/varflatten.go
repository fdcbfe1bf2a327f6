package backend

import (
	"github.com/tos-network/pgdb/internal/varobj"
	"github.com/tos-network/pgdb/internal/wire"
)

// FlattenVarObj walks v's subtree (rooted at dotted path rootPath) into the
// wire's gob-friendly flat node list: varobj.VarObj's Parent back-pointer
// doesn't survive gob, so the wire form carries each node's full dotted
// path instead, which is all a receiver needs to print or re-key it.
// Pseudo-children are inlined: they contribute no node and no path
// segment, so their fields flatten under the enclosing parent's path.
func FlattenVarObj(v *varobj.VarObj, rootPath string) []wire.VarobjNodeMsg {
	var out []wire.VarobjNodeMsg
	var walk func(node *varobj.VarObj, path string)
	walk = func(node *varobj.VarObj, path string) {
		if !varobj.IsPseudo(node.Expression) || node.Parent == nil {
			out = append(out, wire.VarobjNodeMsg{
				Path:          path,
				Short:         node.Expression,
				Type:          node.Type,
				Value:         node.Value,
				HasValue:      node.Value != "",
				DisplayHint:   node.DisplayHint,
				Dynamic:       node.Dynamic,
				NumChildren:   node.NumChild,
				ChildrenKnown: node.ChildrenEnumerated,
				MoreChildren:  node.MoreChildren,
			})
		}
		for _, c := range node.Children {
			childPath := path
			if !varobj.IsPseudo(c.Expression) {
				childPath = varobj.JoinDottedName(path, c.Expression)
			}
			walk(c, childPath)
		}
	}
	walk(v, rootPath)
	return out
}

package varobj

import (
	"errors"
	"fmt"
)

// maxSiblingFanOut is the fixed sibling fan-out cap: a listing that
// reports more than this many children still attaches every one of them
// (subject only to the max-children cap below), but none of them is
// pushed onto the DFS stack for further descent. It gates descent only,
// never the attach loop itself.
const maxSiblingFanOut = 128

// defaultMaxChildren is the per-listing attach cap, distinct from the
// sibling fan-out gate above. A listing attaches at most this many
// children and sets MoreChildren on the parent if it held more;
// ExpandVarObj later attaches the remainder.
const defaultMaxChildren = 60

// ChildDesc describes one child reported by a var-list-children reply,
// translated from raw MI fields by the caller.
type ChildDesc struct {
	Name       string // GDB-side variable object name
	Expression string // display name / path segment
	Type       string
	Value      string
	NumChild   int
	Dynamic    bool
}

// Provider issues the GDB commands the DFS needs and is implemented by the
// coordinator's per-rank command dispatcher; Explore never calls GDB
// directly so it can be exercised without a live debugger.
type Provider interface {
	// CreateRoot issues var-create for expr and returns the resulting
	// variable object's GDB-side name plus its declared child count.
	CreateRoot(expr string) (gdbName string, numChild int, dynamic bool, err error)
	// ListChildren issues var-list-children on gdbName.
	ListChildren(gdbName string) ([]ChildDesc, error)
}

// Limits bounds how far Explore is willing to descend and how many
// children one listing attaches before marking MoreChildren.
type Limits struct {
	MaxDepth    int
	MaxChildren int // 0 means defaultMaxChildren
}

func (l Limits) maxChildren() int {
	if l.MaxChildren <= 0 {
		return defaultMaxChildren
	}
	return l.MaxChildren
}

// ErrMalformedReply is returned when a GDB reply is missing an expected
// field; it terminates only the affected rank's DFS.
var ErrMalformedReply = errors.New("varobj: malformed or incomplete GDB reply")

// Explore implements the varprint descent: starting from the closest
// known ancestor of dottedName (or creating a root if none exists), it
// repeatedly lists children and attaches/pushes each one that passes
// shouldDescend's gates, until dottedName is resolved or the DFS is
// exhausted.
func Explore(tree *Tree, provider Provider, dottedName string, limits Limits) (*VarObj, error) {
	if v, ok := tree.Lookup(dottedName); ok {
		return v, nil
	}

	parts, err := SplitDottedName(dottedName)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, ErrMalformedReply
	}

	ancestor, consumed := tree.ClosestKnownAncestor(parts)
	var stack []*VarObj

	if ancestor == nil {
		gdbName, numChild, dynamic, err := provider.CreateRoot(parts[0])
		if err != nil {
			return nil, fmt.Errorf("varobj: create root %q: %w", parts[0], err)
		}
		root := newRoot(gdbName, parts[0])
		root.NumChild = numChild
		root.Dynamic = dynamic
		tree.AttachRoot(parts[0], root)
		ancestor = root
		consumed = 1
	}

	if consumed == len(parts) {
		return ancestor, nil
	}

	// targetMaxDepth grants the one permitted overflow branch:
	// max-depth+depth(dottedName) along the path leading to dottedName.
	targetMaxDepth := limits.MaxDepth + len(parts)
	stack = append(stack, ancestor)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, siblingCount, err := listChildrenCapped(provider, top, limits.maxChildren())
		if err != nil {
			return nil, err
		}

		topPath := pathOf(tree, top)
		for _, cd := range children {
			child, childPath, err := attachChild(tree, top, topPath, cd)
			if err != nil {
				return nil, err
			}

			if childPath == dottedName {
				return child, nil
			}

			onTargetPath := len(dottedName) > len(childPath) &&
				dottedName[:len(childPath)] == childPath && dottedName[len(childPath)] == '.'
			if !shouldDescend(child, onTargetPath, parts, targetMaxDepth, siblingCount) {
				continue
			}
			stack = append(stack, child)
		}
	}

	if v, ok := tree.Lookup(dottedName); ok {
		return v, nil
	}
	return nil, fmt.Errorf("varobj: %q not found within exploration bounds", dottedName)
}

// listChildrenCapped issues ListChildren and attaches up to attachCap of
// the reported children, setting MoreChildren if the listing held more
// than that. It reports the total number of children GDB described,
// regardless of attachCap, so the caller can apply the separate
// descent-only sibling gate to every attached child.
func listChildrenCapped(provider Provider, top *VarObj, attachCap int) (children []ChildDesc, siblingCount int, err error) {
	children, err = provider.ListChildren(top.Name)
	if err != nil {
		return nil, 0, fmt.Errorf("varobj: list children of %q: %w", top.Name, err)
	}
	siblingCount = len(children)
	top.ChildrenEnumerated = true
	if len(children) > attachCap {
		top.MoreChildren = true
		children = children[:attachCap]
	} else {
		top.MoreChildren = false
	}
	return children, siblingCount, nil
}

// attachChild builds and attaches one VarObj for a reported child,
// returning it along with its full dotted path. A pseudo-child is
// attached without a path segment of its own: its dotted path is the
// parent's, so everything beneath it resolves as if inlined into the
// parent.
func attachChild(tree *Tree, top *VarObj, topPath string, cd ChildDesc) (*VarObj, string, error) {
	if cd.Name == "" || cd.Expression == "" {
		return nil, "", ErrMalformedReply
	}
	child := &VarObj{
		Name:       cd.Name,
		Expression: cd.Expression,
		Type:       cd.Type,
		Value:      cd.Value,
		NumChild:   cd.NumChild,
		Dynamic:    cd.Dynamic,
	}
	if IsPseudo(cd.Expression) {
		tree.AttachInlined(top, child)
		return child, topPath, nil
	}
	childPath := JoinDottedName(topPath, cd.Expression)
	tree.Attach(top, childPath, child)
	return child, childPath, nil
}

// ExpandVarObj completes a listing that an earlier Explore/ExpandVarObj
// call capped at max-children: it re-issues ListChildren on dottedName,
// skips the children already attached, and attaches every remaining one
// -- the attach cap is lifted entirely on an explicit expand. The sibling
// fan-out cap never limits attachment, on expand or otherwise; it only
// gates further descent (enforced in shouldDescend). Calling it on a node
// whose MoreChildren is already false is a no-op.
func ExpandVarObj(tree *Tree, provider Provider, dottedName string) (*VarObj, error) {
	v, ok := tree.Lookup(dottedName)
	if !ok {
		return nil, fmt.Errorf("varobj: %q not known", dottedName)
	}
	if !v.ChildrenEnumerated || !v.MoreChildren {
		return v, nil
	}

	children, err := provider.ListChildren(v.Name)
	if err != nil {
		return nil, fmt.Errorf("varobj: list children of %q: %w", v.Name, err)
	}
	already := len(v.Children)
	if already >= len(children) {
		v.MoreChildren = false
		return v, nil
	}
	remainder := children[already:]

	for _, cd := range remainder {
		if _, _, err := attachChild(tree, v, dottedName, cd); err != nil {
			return nil, err
		}
	}
	v.MoreChildren = false
	return v, nil
}

func shouldDescend(child *VarObj, onTargetPath bool, parts []string, targetMaxDepth int, siblingCount int) bool {
	if IsPseudo(child.Expression) {
		return true // pseudo-children bypass the depth cap entirely
	}
	if child.NumChild <= 0 && !child.Dynamic {
		return false // nothing beneath to explore
	}
	if child.isNullPointer() {
		return false
	}
	if siblingCount > maxSiblingFanOut {
		return false // wide fan-outs are attached but not descended into
	}
	limit := targetMaxDepth
	if !onTargetPath {
		limit = targetMaxDepth - len(parts) // the ordinary max-depth cap off the target path
	}
	return child.Depth <= limit
}

func pathOf(tree *Tree, v *VarObj) string {
	if v.Parent == nil {
		return v.Expression
	}
	parent := pathOf(tree, v.Parent)
	if IsPseudo(v.Expression) {
		return parent // inlined: no path segment of its own
	}
	return JoinDottedName(parent, v.Expression)
}

func dottedPrefix(parts []string, n int) string {
	path := ""
	for i := 0; i < n; i++ {
		path = JoinDottedName(path, parts[i])
	}
	return path
}

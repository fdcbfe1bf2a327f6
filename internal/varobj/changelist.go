package varobj

// ChangeEntry is one var-update changelist entry translated from MI
// fields.
type ChangeEntry struct {
	Name        string
	OutOfScope  bool
	TypeChanged bool
	NewValue    string
	NewType     string
	DisplayHint string
	Dynamic     bool
	NewChildren []ChildDesc // attached to Name's node, in order
}

// ApplyChangelist applies one var-update reply's changelist to tree:
// out-of-scope or type-changed variables are deleted; value, display-hint
// and dynamic-flag changes are applied in place; new_children entries are
// attached to the parent object in arrival order.
func ApplyChangelist(tree *Tree, path map[string]string, entries []ChangeEntry) {
	for _, e := range entries {
		dottedPath, ok := path[e.Name]
		if !ok {
			continue
		}
		v, ok := tree.Lookup(dottedPath)
		if !ok {
			continue
		}
		if e.OutOfScope || e.TypeChanged {
			tree.Delete(dottedPath)
			continue
		}
		v.Value = e.NewValue
		if e.NewType != "" {
			v.Type = e.NewType
		}
		v.DisplayHint = e.DisplayHint
		v.Dynamic = e.Dynamic

		for _, cd := range e.NewChildren {
			child := &VarObj{
				Name:       cd.Name,
				Expression: cd.Expression,
				Type:       cd.Type,
				Value:      cd.Value,
				NumChild:   cd.NumChild,
				Dynamic:    cd.Dynamic,
			}
			childPath := JoinDottedName(dottedPath, cd.Expression)
			tree.Attach(v, childPath, child)
		}
	}
}

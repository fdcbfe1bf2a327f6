package backend

import (
	"fmt"
	"io"
	"strconv"

	"github.com/tos-network/pgdb/internal/mi"
	"github.com/tos-network/pgdb/internal/varobj"
)

// sender is the subset of gdbproc.Process a varobj.Provider needs: issue a
// command and get back the token it was assigned.
type sender interface {
	Send(command string) (int64, error)
}

// recordSource is the subset of gdbproc.Process a Provider reads replies
// from. Separated from sender so tests can fake each independently.
type recordSource interface {
	Next() (mi.Record, bool)
}

// MIProvider implements varobj.Provider by issuing var-create/
// var-list-children commands against a live GDB MI connection and waiting,
// synchronously, for the matching reply -- any other record observed while
// waiting is folded into the coordinator's ordinary batch via onOther
// rather than dropped, since Explore's blocking wait must not cost the
// rest of the back-end's output.
type MIProvider struct {
	send    sender
	recv    recordSource
	onOther func(mi.Record)
}

// NewMIProvider constructs a Provider issuing commands over proc, folding
// any interleaved non-matching record through onOther.
func NewMIProvider(send sender, recv recordSource, onOther func(mi.Record)) *MIProvider {
	return &MIProvider{send: send, recv: recv, onOther: onOther}
}

func (p *MIProvider) awaitToken(tok int64) (mi.Record, error) {
	for {
		rec, ok := p.recv.Next()
		if !ok {
			return mi.Record{}, io.EOF
		}
		if rec.Token != nil && *rec.Token == tok {
			return rec, nil
		}
		if p.onOther != nil {
			p.onOther(rec)
		}
	}
}

// CreateRoot implements varobj.Provider.
func (p *MIProvider) CreateRoot(expr string) (gdbName string, numChild int, dynamic bool, err error) {
	tok, err := p.send.Send(fmt.Sprintf("-var-create - * %s", expr))
	if err != nil {
		return "", 0, false, err
	}
	rec, err := p.awaitToken(tok)
	if err != nil {
		return "", 0, false, err
	}
	if rec.HasSubtype("error") {
		return "", 0, false, varobj.ErrMalformedReply
	}
	name, ok := stringField(rec, "name")
	if !ok {
		return "", 0, false, varobj.ErrMalformedReply
	}
	n, _ := intField(rec, "numchild")
	_, dyn := rec.Fields["dynamic"]
	return name, n, dyn, nil
}

// ListChildren implements varobj.Provider.
func (p *MIProvider) ListChildren(gdbName string) ([]varobj.ChildDesc, error) {
	tok, err := p.send.Send(fmt.Sprintf("-var-list-children --all-values %s", gdbName))
	if err != nil {
		return nil, err
	}
	rec, err := p.awaitToken(tok)
	if err != nil {
		return nil, err
	}
	if rec.HasSubtype("error") {
		return nil, varobj.ErrMalformedReply
	}
	return childDescsFromField(rec.Fields["children"])
}

// childDescsFromField accepts both shapes a children listing parses into:
// a bare value list of tuples, or -- since `[child={...},child={...}]` is
// a result list whose repeated names collapse -- a tuple whose "child"
// entry holds one tuple or a list of them.
func childDescsFromField(v mi.Value) ([]varobj.ChildDesc, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil // no children is not malformed, just empty
	case mi.TupleValue:
		inner, ok := val["child"]
		if !ok {
			return nil, nil
		}
		if t, ok := inner.(mi.TupleValue); ok {
			child, err := childDescFromTuple(t)
			if err != nil {
				return nil, err
			}
			return []varobj.ChildDesc{child}, nil
		}
		return childDescsFromField(inner)
	case mi.ListValue:
		out := make([]varobj.ChildDesc, 0, len(val))
		for _, item := range val {
			tuple, ok := item.(mi.TupleValue)
			if !ok {
				return nil, varobj.ErrMalformedReply
			}
			child, err := childDescFromTuple(tuple)
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, nil
	default:
		return nil, varobj.ErrMalformedReply
	}
}

// Update issues -var-update across every variable object and translates
// the reply's changelist into ChangeEntry values for ApplyChangelist.
func (p *MIProvider) Update() ([]varobj.ChangeEntry, error) {
	tok, err := p.send.Send("-var-update --all-values *")
	if err != nil {
		return nil, err
	}
	rec, err := p.awaitToken(tok)
	if err != nil {
		return nil, err
	}
	if rec.HasSubtype("error") {
		return nil, varobj.ErrMalformedReply
	}
	lv, ok := rec.Fields["changelist"].(mi.ListValue)
	if !ok {
		return nil, nil // nothing changed since the last update
	}
	out := make([]varobj.ChangeEntry, 0, len(lv))
	for _, item := range lv {
		tuple, ok := item.(mi.TupleValue)
		if !ok {
			return nil, varobj.ErrMalformedReply
		}
		name, ok := tupleStringField(tuple, "name")
		if !ok {
			return nil, varobj.ErrMalformedReply
		}
		inScope, _ := tupleStringField(tuple, "in_scope")
		typeChanged, _ := tupleStringField(tuple, "type_changed")
		entry := varobj.ChangeEntry{
			Name:        name,
			OutOfScope:  inScope != "" && inScope != "true",
			TypeChanged: typeChanged == "true",
		}
		entry.NewValue, _ = tupleStringField(tuple, "value")
		entry.NewType, _ = tupleStringField(tuple, "new_type")
		entry.DisplayHint, _ = tupleStringField(tuple, "displayhint")
		_, entry.Dynamic = tuple["dynamic"]
		if nc, ok := tuple["new_children"]; ok {
			children, err := childDescsFromField(nc)
			if err != nil {
				return nil, err
			}
			entry.NewChildren = children
		}
		out = append(out, entry)
	}
	return out, nil
}

// childDescFromTuple translates one child tuple (unwrapping the "child"
// envelope -var-list-children wraps each entry in) into a ChildDesc.
func childDescFromTuple(tuple mi.TupleValue) (varobj.ChildDesc, error) {
	if inner, ok := tuple["child"].(mi.TupleValue); ok {
		tuple = inner
	}
	name, ok := tupleStringField(tuple, "name")
	if !ok {
		return varobj.ChildDesc{}, varobj.ErrMalformedReply
	}
	exp, _ := tupleStringField(tuple, "exp")
	typ, _ := tupleStringField(tuple, "type")
	val, _ := tupleStringField(tuple, "value")
	numChild, _ := tupleIntField(tuple, "numchild")
	_, dynamic := tuple["dynamic"]
	return varobj.ChildDesc{
		Name: name, Expression: exp, Type: typ, Value: val,
		NumChild: numChild, Dynamic: dynamic,
	}, nil
}

func stringField(r mi.Record, name string) (string, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(mi.StringValue)
	return string(s), ok
}

func intField(r mi.Record, name string) (int, bool) {
	s, ok := stringField(r, name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func tupleStringField(t mi.TupleValue, name string) (string, bool) {
	v, ok := t[name]
	if !ok {
		return "", false
	}
	s, ok := v.(mi.StringValue)
	return string(s), ok
}

func tupleIntField(t mi.TupleValue, name string) (int, bool) {
	s, ok := tupleStringField(t, name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

package sbd

import (
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-bexpr"
)

// refusedExtensions are always rejected regardless of policy expression:
// GDB scripting files must never cross the SBD channel.
var refusedExtensions = map[string]bool{".gdb": true, ".py": true}

// refusedPrefixes are platform system paths no legitimate shared-object
// load should ever target.
var refusedPrefixes = []string{"/proc/", "/sys/", "/dev/"}

// LoadRequest describes one shared-object load path a back-end's GDB has
// published, as evaluated against a Policy.
type LoadRequest struct {
	Name string `bexpr:"name"`
	Ext  string `bexpr:"ext"`
	Path string `bexpr:"path"`
}

// Policy decides whether a published load path may be forwarded upward:
// a static set of recognized executable names, plus an optional compiled
// bexpr rule for everything else.
type Policy struct {
	knownExecutables map[string]bool
	evaluator        *bexpr.Evaluator
}

// NewPolicy compiles expr (a go-bexpr boolean expression over LoadRequest's
// tagged fields, e.g. `ext == ".so" and path not contains ".."`) and pairs
// it with a static set of recognized executable names.
func NewPolicy(expr string, knownExecutables []string) (*Policy, error) {
	known := make(map[string]bool, len(knownExecutables))
	for _, n := range knownExecutables {
		known[n] = true
	}
	p := &Policy{knownExecutables: known}
	if expr != "" {
		ev, err := bexpr.CreateEvaluator(expr)
		if err != nil {
			return nil, err
		}
		p.evaluator = ev
	}
	return p, nil
}

// Accept reports whether path may be forwarded as a load-file request: a
// known executable name or a match of the configured pattern, with
// .gdb/.py and system paths always refused.
func (p *Policy) Accept(path string) (bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if refusedExtensions[ext] {
		return false, nil
	}
	for _, prefix := range refusedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false, nil
		}
	}

	name := filepath.Base(path)
	if p.knownExecutables[name] {
		return true, nil
	}
	if p.evaluator == nil {
		return false, nil
	}
	req := LoadRequest{Name: name, Ext: ext, Path: path}
	return p.evaluator.Evaluate(req)
}

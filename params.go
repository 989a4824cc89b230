package planpager

import (
	"cmp"
	"maps"
	"slices"
	"strconv"

	"github.com/samber/lo"
)

// ParamRef identifies a bound parameter either by name (":name") or by
// position ("?1").
type ParamRef struct {
	Name     string
	Position int
}

func Named(name string) ParamRef {
	return ParamRef{Name: name}
}

func Positional(position int) ParamRef {
	return ParamRef{Position: position}
}

func (r ParamRef) String() string {
	if r.Name != "" {
		return ":" + r.Name
	}

	return "?" + strconv.Itoa(r.Position)
}

// ParamSet is a set of parameter references.
type ParamSet map[ParamRef]struct{}

func (s ParamSet) Has(ref ParamRef) bool {
	_, ok := s[ref]
	return ok
}

// Parameters binds parameter references to values.
type Parameters map[ParamRef]any

// Clone returns an independent copy. A nil receiver yields an empty map.
func (p Parameters) Clone() Parameters {
	ret := make(Parameters, len(p))
	maps.Copy(ret, p)

	return ret
}

// Refs returns the bound references, named ones first in name order, then
// positional ones in position order.
func (p Parameters) Refs() []ParamRef {
	refs := lo.Keys(p)
	slices.SortFunc(refs, compareParamRefs)

	return refs
}

// Restrict returns the subset of p referenced by used together with the
// references it dropped.
func (p Parameters) Restrict(used ParamSet) (Parameters, []ParamRef) {
	kept := make(Parameters, len(p))
	var dropped []ParamRef

	for _, ref := range p.Refs() {
		if used.Has(ref) {
			kept[ref] = p[ref]
			continue
		}
		dropped = append(dropped, ref)
	}

	return kept, dropped
}

func compareParamRefs(a, b ParamRef) int {
	if (a.Name == "") != (b.Name == "") {
		return lo.Ternary(a.Name != "", -1, 1)
	}

	return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Position, b.Position))
}

package planpager

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Field maps an entity field to its column.
type Field struct {
	Name   string
	Column string
}

// Entity is the mapping metadata of a persistent class. Entities are shared
// between plans and never mutated once built.
type Entity struct {
	Name       string
	Table      string
	Identifier []string
	Fields     []Field
}

// Column returns the column of the named field.
func (e *Entity) Column(field string) (string, bool) {
	f, ok := lo.Find(e.Fields, func(f Field) bool { return f.Name == field })
	return f.Column, ok
}

func (e *Entity) isIdentifier(field string) bool {
	return slices.Contains(e.Identifier, field)
}

type Cardinality int

const (
	ToOne Cardinality = iota
	ToMany
)

func (c Cardinality) String() string {
	return lo.Ternary(c == ToMany, "to-many", "to-one")
}

type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
)

// Join is an edge of the plan's join graph.
//
// Parent and Association describe where the joined entity hangs in the
// hydrated object graph; On is the SQL join condition. A junction table is a
// plain join of its own, the target entity then names the owning entity as
// Parent.
type Join struct {
	Kind        JoinKind
	Parent      string
	Association string
	Alias       string
	Entity      *Entity
	Cardinality Cardinality
	Fetch       bool
	On          Expr
}

type ProjectionKind int

const (
	// ProjectionEntity selects every field of the entity behind Alias.
	ProjectionEntity ProjectionKind = iota
	// ProjectionScalar selects Expr as Alias and materializes it.
	ProjectionScalar
	// ProjectionHidden selects Expr as Alias only so that other clauses can
	// use it. It never reaches the materialized result.
	ProjectionHidden
)

type Projection struct {
	Kind  ProjectionKind
	Alias string
	Expr  Expr
}

// Materialized reports whether the projection is part of the hydrated
// result.
func (p Projection) Materialized() bool {
	return p.Kind != ProjectionHidden
}

// SelectEntity projects the entity behind alias.
func SelectEntity(alias string) Projection {
	return Projection{Kind: ProjectionEntity, Alias: alias}
}

func SelectScalar(e Expr, alias string) Projection {
	return Projection{Kind: ProjectionScalar, Alias: alias, Expr: e}
}

func SelectHidden(e Expr, alias string) Projection {
	return Projection{Kind: ProjectionHidden, Alias: alias, Expr: e}
}

// From is the root of the plan.
type From struct {
	Alias  string
	Entity *Entity
}

// LogicalPlan is a compiled object query: the input of every rewrite in this
// package. Rewrites never modify a plan they receive, they work on Clone.
type LogicalPlan struct {
	Root        From
	Projections []Projection
	Joins       []Join
	Where       Expr
	GroupBy     []Expr
	Having      Expr
	OrderBy     Orderings
	Distinct    bool
	Limit       *int
	Offset      int
	Params      Parameters

	// CustomRewrite marks a plan whose physical query is produced by a
	// caller-installed rewrite step. Such plans are never paginated through
	// a physical rewrite implicitly.
	CustomRewrite bool
}

// NewPlan returns "SELECT alias FROM entity alias".
func NewPlan(entity *Entity, alias string) *LogicalPlan {
	return &LogicalPlan{
		Root:        From{Alias: alias, Entity: entity},
		Projections: []Projection{SelectEntity(alias)},
		Params:      Parameters{},
	}
}

// Select replaces the projection list.
func (p *LogicalPlan) Select(projections ...Projection) *LogicalPlan {
	p.Projections = projections
	return p
}

// AddJoin appends a join to the join graph. Fetch joins are also projected.
func (p *LogicalPlan) AddJoin(j Join) *LogicalPlan {
	p.Joins = append(p.Joins, j)
	if j.Fetch && !p.projects(j.Alias) {
		p.Projections = append(p.Projections, SelectEntity(j.Alias))
	}

	return p
}

func (p *LogicalPlan) AndWhere(e Expr) *LogicalPlan {
	p.Where = And(p.Where, e)
	return p
}

func (p *LogicalPlan) AddOrderBy(orderBy ...OrderBy) *LogicalPlan {
	p.OrderBy = append(p.OrderBy, orderBy...)
	return p
}

// SetMaxResults sets LIMIT. A negative value removes it.
func (p *LogicalPlan) SetMaxResults(limit int) *LogicalPlan {
	p.Limit = lo.Ternary(limit < 0, nil, lo.ToPtr(limit))
	return p
}

// SetFirstResult sets OFFSET.
func (p *LogicalPlan) SetFirstResult(offset int) *LogicalPlan {
	p.Offset = max(offset, 0)
	return p
}

func (p *LogicalPlan) SetParameter(ref ParamRef, value any) *LogicalPlan {
	if p.Params == nil {
		p.Params = Parameters{}
	}
	p.Params[ref] = value

	return p
}

// Clone returns a deep copy. Entity metadata is shared.
func (p *LogicalPlan) Clone() *LogicalPlan {
	if p == nil {
		return nil
	}

	ret := *p
	if p.Projections != nil {
		ret.Projections = lo.Map(p.Projections, func(pr Projection, _ int) Projection {
			pr.Expr = cloneExpr(pr.Expr)
			return pr
		})
	}
	if p.Joins != nil {
		ret.Joins = lo.Map(p.Joins, func(j Join, _ int) Join {
			j.On = cloneExpr(j.On)
			return j
		})
	}
	ret.Where = cloneExpr(p.Where)
	ret.GroupBy = cloneExprs(p.GroupBy)
	ret.Having = cloneExpr(p.Having)
	ret.OrderBy = p.OrderBy.clone()
	if p.Limit != nil {
		ret.Limit = lo.ToPtr(*p.Limit)
	}
	ret.Params = p.Params.Clone()

	return &ret
}

func (p *LogicalPlan) hasLimitOrOffset() bool {
	return p.Limit != nil || p.Offset > 0
}

// entity resolves an alias declared by this plan.
func (p *LogicalPlan) entity(alias string) (*Entity, bool) {
	if alias == p.Root.Alias {
		return p.Root.Entity, true
	}

	j, ok := p.join(alias)
	if !ok {
		return nil, false
	}

	return j.Entity, true
}

func (p *LogicalPlan) join(alias string) (Join, bool) {
	return lo.Find(p.Joins, func(j Join) bool { return j.Alias == alias })
}

// projects reports whether the entity behind alias is projected.
func (p *LogicalPlan) projects(alias string) bool {
	return lo.ContainsBy(p.Projections, func(pr Projection) bool {
		return pr.Kind == ProjectionEntity && pr.Alias == alias
	})
}

func (p *LogicalPlan) projection(alias string) (Projection, bool) {
	return lo.Find(p.Projections, func(pr Projection) bool {
		return pr.Kind != ProjectionEntity && pr.Alias == alias
	})
}

// expressions lists every expression of the plan in clause order.
func (p *LogicalPlan) expressions() []Expr {
	var ret []Expr
	for _, pr := range p.Projections {
		if pr.Expr != nil {
			ret = append(ret, pr.Expr)
		}
	}
	ret = append(ret, p.joinConditions()...)
	ret = append(ret, p.Where)
	ret = append(ret, p.GroupBy...)
	ret = append(ret, p.Having)
	for _, o := range p.OrderBy {
		ret = append(ret, o.Expr)
	}

	return ret
}

func (p *LogicalPlan) joinConditions() []Expr {
	return lo.Map(p.Joins, func(j Join, _ int) Expr { return j.On })
}

// restrictParams drops bound parameters that no clause of the plan
// references any more.
func (p *LogicalPlan) restrictParams() []ParamRef {
	kept, dropped := p.Params.Restrict(UsedParameters(p.expressions()...))
	p.Params = kept

	return dropped
}

func (p *LogicalPlan) String() string {
	return fmt.Sprintf("plan(%s %s, %d joins)", p.Root.Entity.Name, p.Root.Alias, len(p.Joins))
}

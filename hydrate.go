package planpager

import (
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// Key is the normalized identity of an entity instance.
type Key string

// KeyOf builds a Key from identifier values. Values that print the same,
// such as int32(7), int64(7) and "7", produce the same key.
func KeyOf(values ...any) Key {
	parts := lo.Map(values, func(v any, _ int) string {
		if v == nil {
			return "\x00"
		}
		if b, ok := v.([]byte); ok {
			return string(b)
		}
		return cast.ToString(v)
	})

	return Key(strings.Join(parts, "\x1f"))
}

// Hydrator materializes query results into items of type T.
type Hydrator[T any] interface {
	Hydrate(res *Result) ([]T, error)
	// Identity returns the root identifier of an item.
	Identity(item T) Key
}

// Record is a generic hydrated entity instance.
type Record struct {
	Entity   *Entity
	Alias    string
	Identity Key
	Fields   map[string]any
	// Scalars holds materialized scalar projections of the row that
	// produced a root record.
	Scalars map[string]any
	ToOne   map[string]*Record
	ToMany  map[string][]*Record
}

// Get returns a field value or nil.
func (r *Record) Get(field string) any {
	return r.Fields[field]
}

func (r *Record) attach(j Join, child *Record) {
	if j.Cardinality == ToOne {
		if r.ToOne == nil {
			r.ToOne = map[string]*Record{}
		}
		r.ToOne[j.Association] = child
		return
	}

	if r.ToMany == nil {
		r.ToMany = map[string][]*Record{}
	}
	if !lo.Contains(r.ToMany[j.Association], child) {
		r.ToMany[j.Association] = append(r.ToMany[j.Association], child)
	}
}

var _ Hydrator[*Record] = RecordHydrator{}

// RecordHydrator hydrates rows into Records. Root records are unique by
// identity and keep the order of their first row; fetch joined entities are
// attached to their parents.
type RecordHydrator struct{}

func (RecordHydrator) Identity(r *Record) Key {
	return r.Identity
}

func (RecordHydrator) Hydrate(res *Result) ([]*Record, error) {
	plan := res.Plan
	rootAlias := plan.Root.Alias
	rootProjected := plan.projects(rootAlias)

	// alias -> identity -> record
	registry := map[string]map[Key]*Record{}
	var roots []*Record

	for _, row := range res.Rows {
		fields := map[string]map[string]any{}
		scalars := map[string]any{}
		for i, col := range res.Columns {
			switch {
			case col.Hidden:
			case col.Alias == "":
				scalars[col.Name] = row[i]
			default:
				if fields[col.Alias] == nil {
					fields[col.Alias] = map[string]any{}
				}
				fields[col.Alias][col.Field] = row[i]
			}
		}

		rowRecords := map[string]*Record{}
		for alias, values := range fields {
			entity, ok := plan.entity(alias)
			if !ok {
				continue
			}

			ids := lo.Map(entity.Identifier, func(f string, _ int) any { return values[f] })
			if lo.EveryBy(ids, func(v any) bool { return v == nil }) {
				continue
			}

			key := KeyOf(ids...)
			if registry[alias] == nil {
				registry[alias] = map[Key]*Record{}
			}

			rec, ok := registry[alias][key]
			if !ok {
				rec = &Record{Entity: entity, Alias: alias, Identity: key, Fields: values}
				registry[alias][key] = rec
				if alias == rootAlias {
					rec.Scalars = scalars
					roots = append(roots, rec)
				}
			}
			rowRecords[alias] = rec
		}

		if !rootProjected {
			roots = append(roots, &Record{Alias: rootAlias, Scalars: scalars})
			continue
		}

		for _, j := range plan.Joins {
			child, parent := rowRecords[j.Alias], rowRecords[j.Parent]
			if child == nil || parent == nil || j.Association == "" {
				continue
			}
			parent.attach(j, child)
		}
	}

	return roots, nil
}

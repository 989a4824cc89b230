// Package planpager paginates object queries whose results are entity graphs.
//
// Overview
//
// A LogicalPlan describes "SELECT u, g FROM User u JOIN u.groups g ..."
// in terms of entities, aliases and associations. Applying LIMIT and OFFSET
// to the SQL of such a plan limits rows, not users: a user with three groups
// takes three rows. Paginator fixes that:
//   - Count returns the number of distinct root entities.
//   - Iterate selects the identifiers of one page of roots first and then
//     loads exactly those roots, with all of their fetch joined rows, in
//     page order.
//
// Both queries are derived from the plan in one of two ways. The tree
// walkers rewrite the logical plan and are cheap, but refuse shapes they
// cannot handle (GROUP BY, HAVING, ordering by a to-many association). The
// output walkers wrap the compiled SQL in derived tables and handle every
// shape. StrategyAuto picks the tree walkers when possible.
//
// Key concepts
//   - Executor compiles plans (squirrel) and runs them (GORM).
//   - Hydrator turns rows into items; RecordHydrator builds generic Records.
//   - CursorPager, DefaultCursor and PseudoCursor move a plan to an API page
//     position (keyset or offset); FetchPage combines them with a Paginator.
package planpager

// Package statekit is a reactive state container. A store holds one ordered
// record of named fields, derives values from it with queries, changes it
// only through actions that dispatch field replacements, and notifies
// subscribers after every dispatch.
//
//	s, err := statekit.DefineStore(sk.Definition{
//		Name:  "counter",
//		State: []sk.Field{sk.F("count", 0)},
//		Queries: map[string]sk.QueryFunc{
//			"isPositive": func(s sk.Snapshot) interface{} { return sk.MustField[int](s, "count") > 0 },
//		},
//		Actions: map[string]sk.ActionFunc{
//			"increment": func(c *sk.Context, _ ...interface{}) error {
//				return c.Dispatch("count", sk.MustField[int](c.State, "count")+1)
//			},
//		},
//	})
//
// The public types live in pkg/statekit/v1, imported as sk.
package statekit

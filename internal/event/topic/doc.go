// Package topic provides hierarchical topic names and wildcard matching for
// the event bus.
//
// Topics use dot notation:
//
//	history.action.committed
//	history.property.replayed
//	config.reloaded
//
// Patterns may use two wildcards:
//
//   - "*" matches exactly one segment
//   - "**" matches zero or more segments
//
// Examples:
//
//	history.*.replayed   matches history.method.replayed, history.property.replayed
//	history.**           matches every history topic
//	**                   matches everything
package topic

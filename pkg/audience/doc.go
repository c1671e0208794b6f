// Package audience expands logical recipient specifications (all users, a
// role, an explicit id list, a saved segment) into concrete, deduplicated
// recipient id sets.
//
// Resolution is read-only against the user and segment stores and happens at
// send time: segment membership always reflects current state rather than a
// snapshot frozen when the segment was referenced. An unknown or deleted
// segment resolves to an empty set with a warning, not an error.
package audience

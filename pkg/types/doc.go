// Package types holds the public data model of amcachekit: the typed errors
// returned by the engine, the records reconstructed from an Amcache hive, the
// generation-tagged result union, and the issue report that collects
// recoverable problems met during a parse.
//
// Records are plain structs with exported fields. Optional instants are
// pointers; a nil pointer means the source field was empty, zero, or did not
// parse.
package types

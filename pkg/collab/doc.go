/*
Package collab declares the out-of-scope collaborator interfaces from
spec.md §6: indexing, archival, backup, purge, and migration are never
implemented here. Each interface is narrow enough that core code can
accept one as an optional dependency — typically to pass intercepted
write entities through to it — without ever depending on a concrete
indexing engine, object-storage archiver, or schema-migration tool.

A collaborator's zero value is always nil-safe to omit: nothing in
pkg/txn or pkg/resource requires one to be present.
*/
package collab

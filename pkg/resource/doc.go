/*
Package resource implements the Transactional Resource Adapter from
spec.md §4.2: it turns any kv.Store into a kv.Resource by buffering
Save/Delete intents in memory and only applying them to the backend when
the coordinator calls Commit.

# Staging rules (spec.md §3)

Per (adapter, key), at most one Save is staged at a time:

	stage_save(k, v)    then stage_save(k, v2)    -> only v2 staged
	stage_save(k, v)    then stage_delete(k)      -> only the delete staged
	stage_delete(k)     then stage_save(k, v)     -> only the save staged

# Commit order (spec.md §4.2)

Commit applies every staged Delete first, then issues one SaveMany call
for every staged Save, then — if the wrapped Store also implements
kv.Resource — delegates Commit to it so it can finalize its own
transaction (flush to disk, commit a held bbolt/sql transaction, ...).
The same delegation happens for Prepare, Rollback, and the three
savepoint operations, so a backend with native transaction support
(boltstore, sqlitestore) still gets a chance to participate.
*/
package resource

/*
Package providers is the process-wide factory from spec.md §4.5: given a
config.ProviderConfig naming a backend by TypeName, it constructs (and
caches, keyed by provider Name) the matching kv.Store implementation.

Core code never imports pkg/kv/filestore, pkg/kv/boltstore, pkg/kv/sqlitestore,
pkg/kv/memstore, or pkg/kv/registrystore directly — it asks the Registry
for a named store and gets back a kv.Store, the same plugin-registration
shape the rest of the pack uses for swappable backends (see
wangsiyu12344-eso-design-patterns' provider registry): a global,
mutex-guarded map from a short type name to a constructor function, so
adding a sixth backend never touches the Registry's own code.
*/
package providers

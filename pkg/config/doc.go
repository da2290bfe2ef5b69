/*
Package config loads the single hierarchical JSON configuration document
described in spec.md §6: a Providers section naming every backend the
factory (pkg/providers) can construct, plus the backend-specific options
each provider implementation reads out of its ProviderConfig.

A Document is deliberately just data — it never constructs a backend
itself. pkg/providers.Registry turns a ProviderConfig into a live
kv.Store.
*/
package config

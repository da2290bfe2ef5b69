/*
Package serializer converts entities to and from the compact,
self-describing byte form spec.md §4.4 calls for: JSON text by default,
with optional transparent gzip compression.

# Wire format

Serialize always writes one leading format byte, then the payload, so a
decoder never has to guess whether the remainder is compressed:

	byte 0 = formatPlain (0x00): payload is raw JSON.
	byte 0 = formatGzip  (0x01): payload is base64-encoded gzip of JSON.

Codec[T] sits above Serializer and is the generic piece spec.md §9's
design notes ask for ("generics over entity type... monomorphic-per-
entity instantiation"): each service instantiates one Codec per domain
type (Codec[Order], Codec[Payment], ...) to move between its own struct
and the *entity.Entity the KV layer stores, without any runtime type
switch in the core path.
*/
package serializer

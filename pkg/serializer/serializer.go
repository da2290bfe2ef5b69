package serializer

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/cuemby/ledger/pkg/entity"
	"github.com/cuemby/ledger/pkg/txnerr"
	"github.com/klauspost/compress/gzip"
)

const (
	formatPlain byte = 0x00
	formatGzip  byte = 0x01
)

// Serializer converts arbitrary values to and from ledger's wire format.
// A nil input serializes to a nil byte slice, and deserializing a nil
// byte slice is a no-op, matching spec.md §4.4's "identity for null
// inputs".
type Serializer struct {
	compress bool
}

// New returns a Serializer. When compress is true, Serialize transparently
// gzips the JSON payload and base64-encodes it (spec.md §4.4).
func New(compress bool) *Serializer {
	return &Serializer{compress: compress}
}

// Serialize encodes v as the ledger wire format.
func (s *Serializer) Serialize(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, txnerr.Wrap(txnerr.Serialization, "marshal value", err)
	}
	if !s.compress {
		return append([]byte{formatPlain}, plain...), nil
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(plain); err != nil {
		return nil, txnerr.Wrap(txnerr.Serialization, "gzip value", err)
	}
	if err := gw.Close(); err != nil {
		return nil, txnerr.Wrap(txnerr.Serialization, "close gzip writer", err)
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	out := make([]byte, 0, len(encoded)+1)
	out = append(out, formatGzip)
	out = append(out, encoded...)
	return out, nil
}

// Deserialize decodes data (as produced by Serialize, in either format)
// into v.
func (s *Serializer) Deserialize(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	format, body := data[0], data[1:]
	switch format {
	case formatPlain:
		if err := json.Unmarshal(body, v); err != nil {
			return txnerr.Wrap(txnerr.Serialization, "unmarshal plain value", err)
		}
		return nil
	case formatGzip:
		raw, err := base64.StdEncoding.DecodeString(string(body))
		if err != nil {
			return txnerr.Wrap(txnerr.Serialization, "base64-decode value", err)
		}
		gr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return txnerr.Wrap(txnerr.Serialization, "open gzip reader", err)
		}
		defer gr.Close()
		plain, err := io.ReadAll(gr)
		if err != nil {
			return txnerr.Wrap(txnerr.Serialization, "read gzip stream", err)
		}
		if err := json.Unmarshal(plain, v); err != nil {
			return txnerr.Wrap(txnerr.Serialization, "unmarshal gzip value", err)
		}
		return nil
	default:
		return txnerr.Newf(txnerr.Serialization, "unrecognized wire format byte 0x%02x", format)
	}
}

// Codec binds a Serializer to one domain type T, converting between T and
// the *entity.Entity the KV layer persists. A service instantiates one
// Codec per entity type it owns (Codec[Order], Codec[Payment], ...).
type Codec[T any] struct {
	ser *Serializer
}

// NewCodec returns a Codec[T] backed by ser.
func NewCodec[T any](ser *Serializer) Codec[T] {
	return Codec[T]{ser: ser}
}

// Encode marshals value into an *entity.Entity ready for kv.Store.Save.
func (c Codec[T]) Encode(key string, version int64, etag string, value T) (*entity.Entity, error) {
	payload, err := c.ser.Serialize(value)
	if err != nil {
		return nil, err
	}
	return &entity.Entity{
		Key:     key,
		Version: version,
		ETag:    etag,
		Payload: payload,
	}, nil
}

// Decode unmarshals e.Payload into a value of type T.
func (c Codec[T]) Decode(e *entity.Entity) (T, error) {
	var out T
	if e == nil {
		return out, nil
	}
	if err := c.ser.Deserialize(e.Payload, &out); err != nil {
		return out, err
	}
	return out, nil
}

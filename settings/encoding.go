package settings

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// encodeValue packs v using msgpack with sorted map keys, so equal values
// always produce equal bytes.
func encodeValue(name string, v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, valueErrf(name, err, "failed to encode %T using MsgPack", v)
	}
	return buf.Bytes(), nil
}

// decodeValue unpacks raw into ptr. Decoding into *any yields int64, uint64,
// float64, string, bool, []any and map[string]any.
func decodeValue(name string, raw []byte, ptr any) error {
	var r bytes.Reader
	r.Reset(raw)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	dec.UseLooseInterfaceDecoding(true)
	err := dec.Decode(ptr)
	msgpack.PutDecoder(dec)
	if err != nil {
		return valueErrf(name, err, "failed to decode msgpack into %T", ptr)
	}
	return nil
}

func decodeAny(name string, raw []byte) (any, error) {
	var v any
	if err := decodeValue(name, raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

package event

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMsgpack writes the record as [timestamp, field map]. Map keys are
// emitted in sorted order so the same record always yields the same bytes.
func (r Record) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.Encode(r.Time); err != nil {
		return err
	}
	if err := enc.EncodeMapLen(len(r.Fields)); err != nil {
		return err
	}
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := encodeValue(enc, r.Fields[k]); err != nil {
			return err
		}
	}
	return nil
}

// encodeValue pins integers to their most compact msgpack representation,
// which the wire format mandates independently of encoder defaults.
func encodeValue(enc *msgpack.Encoder, v any) error {
	switch n := v.(type) {
	case uint64:
		return enc.EncodeUint(n)
	case uint:
		return enc.EncodeUint(uint64(n))
	case uint32:
		return enc.EncodeUint(uint64(n))
	case int64:
		return enc.EncodeInt(n)
	case int:
		return enc.EncodeInt(int64(n))
	case int32:
		return enc.EncodeInt(int64(n))
	default:
		return enc.Encode(v)
	}
}

// DecodeMsgpack reads one record, validating the documented layout: an array
// of two elements, an 8-byte type-0 extension timestamp and a string-keyed
// map.
func (r *Record) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return fmt.Errorf("event: record is not an array: %w", err)
	}
	if n != 2 {
		return fmt.Errorf("event: record array has %d elements, want 2", n)
	}
	if err := dec.Decode(&r.Time); err != nil {
		return fmt.Errorf("event: bad timestamp: %w", err)
	}
	ml, err := dec.DecodeMapLen()
	if err != nil {
		return fmt.Errorf("event: record has no field map: %w", err)
	}
	r.Fields = make(map[string]any, ml)
	for i := 0; i < ml; i++ {
		k, err := dec.DecodeString()
		if err != nil {
			return fmt.Errorf("event: bad field key: %w", err)
		}
		v, err := dec.DecodeInterfaceLoose()
		if err != nil {
			return fmt.Errorf("event: bad value for field %q: %w", k, err)
		}
		r.Fields[k] = v
	}
	return nil
}

// Marshal serializes a single record into a self-contained buffer.
func Marshal(r Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalAll concatenates the encodings of several records into one buffer,
// the framing the ingestion entry point accepts.
func MarshalAll(rs []Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	for _, r := range rs {
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a buffer containing exactly one record.
func Unmarshal(b []byte) (Record, error) {
	rs, err := UnmarshalAll(b)
	if err != nil {
		return Record{}, err
	}
	if len(rs) != 1 {
		return Record{}, fmt.Errorf("event: buffer holds %d records, want 1", len(rs))
	}
	return rs[0], nil
}

// UnmarshalAll decodes every record in a buffer. A buffer with trailing
// garbage or no records at all is rejected.
func UnmarshalAll(b []byte) ([]Record, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	var rs []Record
	for {
		var r Record
		err := dec.Decode(&r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("event: empty buffer")
	}
	return rs, nil
}

// Package event defines the record model shared by flit inputs, the engine
// and outputs, together with its binary wire codec.
//
// A record is a pair of a wall-clock timestamp and a flat field map. On the
// wire a record is a msgpack array of two elements: the timestamp encoded as
// extension type 0 (fixext8, 4 bytes big-endian seconds followed by 4 bytes
// big-endian nanoseconds) and the field map as a msgpack map. The layout is
// fixed; consumers on the other side of the ingestion boundary decode it
// byte for byte.
package event

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// eventTimeExtID is the msgpack extension type tag used for timestamps.
const eventTimeExtID = 0

// MaxNanos is the largest valid nanosecond component of an EventTime.
const MaxNanos = 999_999_999

// EventTime is a second/nanosecond wall-clock timestamp. It embeds time.Time
// and serializes as msgpack extension type 0.
type EventTime struct {
	time.Time
}

// Now returns the current wall-clock time as an EventTime.
func Now() EventTime {
	return EventTime{time.Now()}
}

// NewEventTime builds an EventTime from raw second and nanosecond components.
func NewEventTime(sec, nsec uint32) EventTime {
	return EventTime{time.Unix(int64(sec), int64(nsec))}
}

// Seconds returns the whole-seconds component.
func (et EventTime) Seconds() uint32 {
	return uint32(et.Unix())
}

// Nanos returns the nanosecond remainder, always in [0, MaxNanos].
func (et EventTime) Nanos() uint32 {
	return uint32(et.Nanosecond())
}

func init() {
	msgpack.RegisterExtEncoder(eventTimeExtID, EventTime{}, encodeEventTime)
	msgpack.RegisterExtDecoder(eventTimeExtID, EventTime{}, decodeEventTime)
}

func encodeEventTime(_ *msgpack.Encoder, v reflect.Value) ([]byte, error) {
	et := v.Interface().(EventTime)
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b, et.Seconds())
	binary.BigEndian.PutUint32(b[4:], et.Nanos())
	return b, nil
}

func decodeEventTime(d *msgpack.Decoder, v reflect.Value, extLen int) error {
	if extLen != 8 {
		return fmt.Errorf("event: timestamp ext must be 8 bytes, got %d", extLen)
	}
	b := make([]byte, extLen)
	if err := d.ReadFull(b); err != nil {
		return err
	}
	sec := binary.BigEndian.Uint32(b)
	nsec := binary.BigEndian.Uint32(b[4:])
	if nsec > MaxNanos {
		return fmt.Errorf("event: nanosecond component %d out of range", nsec)
	}
	v.Set(reflect.ValueOf(NewEventTime(sec, nsec)))
	return nil
}

// Record is one timestamped unit of data produced by an input. Records are
// ephemeral: an input builds one, serializes it and hands the buffer to the
// engine.
type Record struct {
	Time   EventTime
	Fields map[string]any
}

// NewRecord builds a record stamped with the current wall-clock time.
func NewRecord(fields map[string]any) Record {
	return Record{Time: Now(), Fields: fields}
}

// Uint returns the value of a numeric field as uint64. Integers arrive from
// the decoder as int64 regardless of the width they were encoded with.
func (r Record) Uint(key string) (uint64, bool) {
	switch v := r.Fields[key].(type) {
	case uint64:
		return v, true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// String returns the value of a string field.
func (r Record) String(key string) (string, bool) {
	s, ok := r.Fields[key].(string)
	return s, ok
}

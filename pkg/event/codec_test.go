package event

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMarshalWireLayout(t *testing.T) {
	r := Record{
		Time:   NewEventTime(1700000000, 123456789),
		Fields: map[string]any{"collect-calls": uint64(1)},
	}

	b, err := Marshal(r)
	require.NoError(t, err)

	var expected []byte
	expected = append(expected, 0x92)       // array of 2
	expected = append(expected, 0xd7, 0x00) // fixext8, type 0
	expected = binary.BigEndian.AppendUint32(expected, 1700000000)
	expected = binary.BigEndian.AppendUint32(expected, 123456789)
	expected = append(expected, 0x81)                     // map of 1
	expected = append(expected, 0xad)                     // str of 13
	expected = append(expected, []byte("collect-calls")...)
	expected = append(expected, 0x01) // positive fixint 1

	require.Equal(t, expected, b)
}

func TestMarshalSortsFieldKeys(t *testing.T) {
	r := Record{
		Time:   NewEventTime(1, 0),
		Fields: map[string]any{"b": uint64(2), "a": uint64(1), "c": uint64(3)},
	}

	b1, err := Marshal(r)
	require.NoError(t, err)
	b2, err := Marshal(r)
	require.NoError(t, err)
	require.Equal(t, b1, b2)

	decoded, err := Unmarshal(b1)
	require.NoError(t, err)
	require.Len(t, decoded.Fields, 3)
}

func TestUnmarshalRoundTrip(t *testing.T) {
	r := Record{
		Time: NewEventTime(1700000000, 999999999),
		Fields: map[string]any{
			"collect-calls": uint64(42),
			"message":       "hello",
		},
	}

	b, err := Marshal(r)
	require.NoError(t, err)

	decoded, err := Unmarshal(b)
	require.NoError(t, err)
	require.Equal(t, uint32(1700000000), decoded.Time.Seconds())
	require.Equal(t, uint32(999999999), decoded.Time.Nanos())

	n, ok := decoded.Uint("collect-calls")
	require.True(t, ok)
	require.Equal(t, uint64(42), n)

	s, ok := decoded.String("message")
	require.True(t, ok)
	require.Equal(t, "hello", s)
}

func TestUnmarshalRejectsBadBuffers(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"Empty", nil},
		{"Not an array", []byte{0x01}},
		{"Wrong array length", []byte{0x93, 0xd7, 0x00, 0, 0, 0, 0, 0, 0, 0, 0, 0x80, 0xc0}},
		{"Timestamp not an ext", []byte{0x92, 0x01, 0x80}},
		{"Truncated", []byte{0x92, 0xd7, 0x00, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.buf)
			require.Error(t, err)
		})
	}
}

func TestUnmarshalRejectsNanosOutOfRange(t *testing.T) {
	var buf []byte
	buf = append(buf, 0x92, 0xd7, 0x00)
	buf = binary.BigEndian.AppendUint32(buf, 1)
	buf = binary.BigEndian.AppendUint32(buf, 1_000_000_000)
	buf = append(buf, 0x80) // empty map

	_, err := Unmarshal(buf)
	require.Error(t, err)
}

func TestMarshalAllConcatenates(t *testing.T) {
	rs := []Record{
		{Time: NewEventTime(10, 0), Fields: map[string]any{"collect-calls": uint64(1)}},
		{Time: NewEventTime(11, 0), Fields: map[string]any{"collect-calls": uint64(2)}},
	}

	b, err := MarshalAll(rs)
	require.NoError(t, err)

	decoded, err := UnmarshalAll(b)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	for i, r := range decoded {
		n, ok := r.Uint("collect-calls")
		require.True(t, ok)
		require.Equal(t, uint64(i+1), n)
	}
}

func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sec := rapid.Uint32().Draw(t, "sec")
		nsec := rapid.Uint32Range(0, MaxNanos).Draw(t, "nsec")
		keys := rapid.SliceOfNDistinct(
			rapid.StringMatching(`[a-z][a-z0-9_-]{0,20}`), 0, 8,
			func(s string) string { return s },
		).Draw(t, "keys")

		fields := make(map[string]any, len(keys))
		for i, k := range keys {
			if i%2 == 0 {
				fields[k] = rapid.Uint64Range(0, 1<<62).Draw(t, "num")
			} else {
				fields[k] = rapid.StringMatching(`[ -~]{0,40}`).Draw(t, "str")
			}
		}
		r := Record{Time: NewEventTime(sec, nsec), Fields: fields}

		b, err := Marshal(r)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		decoded, err := Unmarshal(b)
		if err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if decoded.Time.Seconds() != sec || decoded.Time.Nanos() != nsec {
			t.Fatalf("timestamp mismatch: got %d.%d want %d.%d",
				decoded.Time.Seconds(), decoded.Time.Nanos(), sec, nsec)
		}
		for k, v := range fields {
			switch want := v.(type) {
			case uint64:
				got, ok := decoded.Uint(k)
				if !ok || got != want {
					t.Fatalf("field %q: got %v want %v", k, decoded.Fields[k], want)
				}
			case string:
				got, ok := decoded.String(k)
				if !ok || got != want {
					t.Fatalf("field %q: got %v want %v", k, decoded.Fields[k], want)
				}
			}
		}
	})
}

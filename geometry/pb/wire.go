package pb

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshaler is implemented by every wire message in the questrig schema.
type Marshaler interface {
	Marshal() ([]byte, error)
}

// Unmarshaler is implemented by every wire message in the questrig schema.
type Unmarshaler interface {
	Unmarshal([]byte) error
}

// AppendDouble appends a double field, eliding the proto3 zero value.
func AppendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// ConsumeDouble decodes a double field value into dst.
func ConsumeDouble(field []byte, dst *float64) (int, error) {
	v, n := protowire.ConsumeFixed64(field)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = math.Float64frombits(v)
	return n, nil
}

// AppendInt32 appends an int32 field as a varint, eliding zero. Negative
// values sign-extend to ten wire bytes, matching standard int32 encoding.
func AppendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

// ConsumeInt32 decodes an int32 varint field value into dst.
func ConsumeInt32(field []byte, dst *int32) (int, error) {
	v, n := protowire.ConsumeVarint(field)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = int32(v)
	return n, nil
}

// AppendBool appends a bool field, eliding false.
func AppendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

// ConsumeBool decodes a bool varint field value into dst.
func ConsumeBool(field []byte, dst *bool) (int, error) {
	v, n := protowire.ConsumeVarint(field)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v != 0
	return n, nil
}

// AppendString appends a string field, eliding the empty string.
func AppendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// ConsumeString decodes a string field value into dst.
func ConsumeString(field []byte, dst *string) (int, error) {
	v, n := protowire.ConsumeString(field)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

// AppendMessage length-delimits and appends a nested message. Callers
// skip the call entirely for nil fields.
func AppendMessage(b []byte, num protowire.Number, m Marshaler) ([]byte, error) {
	sub, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub), nil
}

// ConsumeEmbedded decodes a length-delimited nested message field into m.
func ConsumeEmbedded(field []byte, m Unmarshaler) (int, error) {
	sub, n := protowire.ConsumeBytes(field)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	if err := m.Unmarshal(sub); err != nil {
		return 0, err
	}
	return n, nil
}

// SkipField consumes an unknown field so decoders tolerate fields added
// after they were built.
func SkipField(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, field)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}

// WalkMessage iterates the wire-format fields of data, dispatching each to
// visit. The callback consumes the field value (not the tag) and returns
// how many bytes it used.
func WalkMessage(data []byte, visit func(num protowire.Number, typ protowire.Type, field []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		used, err := visit(num, typ, data)
		if err != nil {
			return err
		}
		data = data[used:]
	}
	return nil
}

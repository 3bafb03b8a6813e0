package persist

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// consumeFields walks the top-level fields of b. fn receives the contents of
// length-delimited fields and the raw encoded value of every other field.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}

		b = b[n:]

		var v []byte

		if typ == protowire.BytesType {
			v, n = protowire.ConsumeBytes(b)
		} else {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n >= 0 {
				v = b[:n]
			}
		}

		if n < 0 {
			return protowire.ParseError(n)
		}

		if err := fn(num, typ, v); err != nil {
			return err
		}

		b = b[n:]
	}

	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendString(b, s)
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)

	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, msg)
}

func appendPackedSint(b []byte, num protowire.Number, vs []int64) []byte {
	if len(vs) == 0 {
		return b
	}

	var p []byte
	for _, v := range vs {
		p = protowire.AppendVarint(p, protowire.EncodeZigZag(v))
	}

	return appendMessage(b, num, p)
}

func appendPackedFloat(b []byte, num protowire.Number, vs []float32) []byte {
	if len(vs) == 0 {
		return b
	}

	return appendMessage(b, num, packFloat(vs))
}

func packFloat(vs []float32) []byte {
	p := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		p = protowire.AppendFixed32(p, math.Float32bits(v))
	}

	return p
}

func appendPackedDouble(b []byte, num protowire.Number, vs []float64) []byte {
	if len(vs) == 0 {
		return b
	}

	p := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		p = protowire.AppendFixed64(p, math.Float64bits(v))
	}

	return appendMessage(b, num, p)
}

func sintOf(typ protowire.Type, raw []byte) (int64, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("expected varint, got wire type %d", typ)
	}

	v, n := protowire.ConsumeVarint(raw)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}

	return protowire.DecodeZigZag(v), nil
}

func doubleOf(typ protowire.Type, raw []byte) (float64, error) {
	if typ != protowire.Fixed64Type {
		return 0, fmt.Errorf("expected fixed64, got wire type %d", typ)
	}

	v, n := protowire.ConsumeFixed64(raw)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}

	return math.Float64frombits(v), nil
}

func unpackSint(p []byte) ([]int64, error) {
	var out []int64

	for len(p) > 0 {
		v, n := protowire.ConsumeVarint(p)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		out = append(out, protowire.DecodeZigZag(v))
		p = p[n:]
	}

	return out, nil
}

func unpackFloat(p []byte) ([]float32, error) {
	if len(p)%4 != 0 {
		return nil, fmt.Errorf("packed float32 of %d bytes", len(p))
	}

	out := make([]float32, 0, len(p)/4)

	for len(p) > 0 {
		v, n := protowire.ConsumeFixed32(p)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		out = append(out, math.Float32frombits(v))
		p = p[n:]
	}

	return out, nil
}

func unpackDouble(p []byte) ([]float64, error) {
	if len(p)%8 != 0 {
		return nil, fmt.Errorf("packed float64 of %d bytes", len(p))
	}

	out := make([]float64, 0, len(p)/8)

	for len(p) > 0 {
		v, n := protowire.ConsumeFixed64(p)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		out = append(out, math.Float64frombits(v))
		p = p[n:]
	}

	return out, nil
}

// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package der

import (
	"bytes"
	"math/big"

	"derlib.dev/asn1"
	"derlib.dev/asn1/internal/base128"
)

// Encoder is the interface implemented by types that can encode themselves
// onto a [Serializer]. Implementations append exactly one data value.
type Encoder interface {
	EncodeDER(s *Serializer) error
}

// Serializer accumulates DER-encoded data values in an in-memory buffer. The
// zero value is an empty Serializer ready for use.
//
// The indefinite-length format is never emitted; constructed data values are
// buffered in a nested Serializer and written with their definite length.
type Serializer struct {
	buf bytes.Buffer
}

// Bytes returns the accumulated encoding. The slice is only valid until the
// next write operation on s.
func (s *Serializer) Bytes() []byte {
	return s.buf.Bytes()
}

// Len returns the number of bytes accumulated so far.
func (s *Serializer) Len() int {
	return s.buf.Len()
}

// AppendPrimitive appends a primitive data value with the given identifier.
// The content octets are produced by fn, which may be nil for an empty
// content.
func (s *Serializer) AppendPrimitive(id asn1.Identifier, fn func(*bytes.Buffer) error) error {
	var content bytes.Buffer
	if fn != nil {
		if err := fn(&content); err != nil {
			return err
		}
	}
	s.writeHeader(id, false, content.Len())
	s.buf.Write(content.Bytes())
	return nil
}

// AppendConstructed appends a constructed data value with the given
// identifier. The content is produced by running fn on a nested Serializer
// whose buffer becomes the content octets.
func (s *Serializer) AppendConstructed(id asn1.Identifier, fn func(*Serializer) error) error {
	var nested Serializer
	if fn != nil {
		if err := fn(&nested); err != nil {
			return err
		}
	}
	s.writeHeader(id, true, nested.Len())
	s.buf.Write(nested.Bytes())
	return nil
}

// WriteSequence appends a universal SEQUENCE whose content is produced by fn.
func (s *Serializer) WriteSequence(fn func(*Serializer) error) error {
	return s.AppendConstructed(IdentifierSequence, fn)
}

// WriteSet appends a universal SET whose content is produced by fn.
func (s *Serializer) WriteSet(fn func(*Serializer) error) error {
	return s.AppendConstructed(IdentifierSet, fn)
}

// WriteNode re-encodes the data value n, recursing into constructed data
// values. For trees produced by [Parse] the output is byte-identical to the
// original input.
func (s *Serializer) WriteNode(n Node) error {
	if !n.Constructed() {
		data, err := n.Bytes()
		if err != nil {
			return err
		}
		return s.AppendPrimitive(n.Identifier(), func(b *bytes.Buffer) error {
			b.Write(data)
			return nil
		})
	}
	it, err := n.Children()
	if err != nil {
		return err
	}
	return s.AppendConstructed(n.Identifier(), func(nested *Serializer) error {
		for {
			child, ok := it.Next()
			if !ok {
				return nil
			}
			if err := nested.WriteNode(child); err != nil {
				return err
			}
		}
	})
}

// Serialize appends the encoding of v using its default identifier. The
// following types are supported:
//
//   - bool
//   - int, int8, int16, int32, int64 and *big.Int
//   - float32 and float64
//   - []byte
//   - string, [asn1.UTF8String], [asn1.IA5String] and [asn1.PrintableString]
//   - [asn1.BitString], [asn1.Null] and [asn1.ObjectIdentifier]
//   - [Node] (re-encoded via [Serializer.WriteNode])
//   - any type implementing [Encoder]
func (s *Serializer) Serialize(v any) error {
	switch vv := v.(type) {
	case bool:
		return s.WriteBoolean(vv)
	case int:
		return s.WriteInt64(int64(vv))
	case int8:
		return s.WriteInt64(int64(vv))
	case int16:
		return s.WriteInt64(int64(vv))
	case int32:
		return s.WriteInt64(int64(vv))
	case int64:
		return s.WriteInt64(vv)
	case *big.Int:
		return s.WriteInteger(vv)
	case float32:
		return s.WriteReal(float64(vv))
	case float64:
		return s.WriteReal(vv)
	case []byte:
		return s.WriteOctetString(vv)
	case string:
		return s.WriteUTF8String(asn1.UTF8String(vv))
	case asn1.UTF8String:
		return s.WriteUTF8String(vv)
	case asn1.IA5String:
		return s.WriteIA5String(vv)
	case asn1.PrintableString:
		return s.WritePrintableString(vv)
	case asn1.BitString:
		return s.WriteBitString(vv)
	case asn1.Null:
		return s.WriteNull()
	case asn1.ObjectIdentifier:
		return s.WriteObjectIdentifier(vv)
	case Node:
		return s.WriteNode(vv)
	case Encoder:
		return vv.EncodeDER(s)
	}
	return errType("cannot serialize unsupported value")
}

// writeHeader emits the identifier and length octets of a data value. Tag
// numbers below 31 use the single-octet form; larger numbers are encoded in
// base-128 continuation octets. Lengths up to 127 use the short form, larger
// lengths the minimal long form.
func (s *Serializer) writeHeader(id asn1.Identifier, constructed bool, length int) {
	b := byte(id.Class) << 6
	if constructed {
		b |= 0x20
	}
	if !id.LongForm() {
		s.buf.WriteByte(b | byte(id.Number))
	} else {
		s.buf.WriteByte(b | 0x1f)
		base128.Write(&s.buf, id.Number)
	}

	if length < 128 {
		s.buf.WriteByte(byte(length))
		return
	}
	numBytes := 1
	for l := length; l > 255; l >>= 8 {
		numBytes++
	}
	s.buf.WriteByte(0x80 | byte(numBytes))
	for ; numBytes > 0; numBytes-- {
		s.buf.WriteByte(byte(length >> uint((numBytes-1)*8)))
	}
}

// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package der

import (
	"bytes"
	"io"
	"math"
	"math/big"
	"math/bits"

	"derlib.dev/asn1"
	"derlib.dev/asn1/internal/base128"
)

// Default identifiers of the universal types implemented by this package.
// The Decode* functions expect these identifiers; the *As variants accept a
// caller-supplied identifier instead, which is how IMPLICIT-tagged fields are
// decoded and encoded: the content rules stay the type's, only the outer
// identifier changes.
var (
	IdentifierBoolean          = asn1.Identifier{Class: asn1.ClassUniversal, Number: asn1.TagBoolean}
	IdentifierInteger          = asn1.Identifier{Class: asn1.ClassUniversal, Number: asn1.TagInteger}
	IdentifierBitString        = asn1.Identifier{Class: asn1.ClassUniversal, Number: asn1.TagBitString}
	IdentifierOctetString      = asn1.Identifier{Class: asn1.ClassUniversal, Number: asn1.TagOctetString}
	IdentifierNull             = asn1.Identifier{Class: asn1.ClassUniversal, Number: asn1.TagNull}
	IdentifierObjectIdentifier = asn1.Identifier{Class: asn1.ClassUniversal, Number: asn1.TagOID}
	IdentifierReal             = asn1.Identifier{Class: asn1.ClassUniversal, Number: asn1.TagReal}
	IdentifierUTF8String       = asn1.Identifier{Class: asn1.ClassUniversal, Number: asn1.TagUTF8String}
	IdentifierSequence         = asn1.Identifier{Class: asn1.ClassUniversal, Number: asn1.TagSequence}
	IdentifierSet              = asn1.Identifier{Class: asn1.ClassUniversal, Number: asn1.TagSet}
	IdentifierPrintableString  = asn1.Identifier{Class: asn1.ClassUniversal, Number: asn1.TagPrintableString}
	IdentifierIA5String        = asn1.Identifier{Class: asn1.ClassUniversal, Number: asn1.TagIA5String}
)

// primitiveContent verifies that n carries the expected identifier and uses
// the primitive encoding and returns its content octets.
func primitiveContent(n Node, id asn1.Identifier) ([]byte, error) {
	if n.Identifier() != id {
		return nil, errType("expected " + id.String() + ", got " + n.Identifier().String())
	}
	return n.Bytes()
}

//region [UNIVERSAL 1] BOOLEAN

// DecodeBoolean decodes the BOOLEAN data value n.
func DecodeBoolean(n Node) (bool, error) {
	return DecodeBooleanAs(n, IdentifierBoolean)
}

// DecodeBooleanAs decodes a BOOLEAN data value carrying the identifier id.
// DER permits exactly the content octets 0x00 and 0xFF.
func DecodeBooleanAs(n Node, id asn1.Identifier) (bool, error) {
	data, err := primitiveContent(n, id)
	if err != nil {
		return false, err
	}
	if len(data) != 1 {
		return false, errInvalid("boolean must be a single octet")
	}
	switch data[0] {
	case 0x00:
		return false, nil
	case 0xFF:
		return true, nil
	}
	return false, errInvalid("invalid boolean octet")
}

// WriteBoolean appends the encoding of the BOOLEAN v.
func (s *Serializer) WriteBoolean(v bool) error {
	return s.WriteBooleanAs(IdentifierBoolean, v)
}

// WriteBooleanAs appends the encoding of the BOOLEAN v using the identifier
// id.
func (s *Serializer) WriteBooleanAs(id asn1.Identifier, v bool) error {
	return s.AppendPrimitive(id, func(b *bytes.Buffer) error {
		if v {
			b.WriteByte(0xFF)
		} else {
			b.WriteByte(0x00)
		}
		return nil
	})
}

//endregion

//region [UNIVERSAL 2] INTEGER

var bigOne = big.NewInt(1)

// DecodeInteger decodes the INTEGER data value n. The size of the integer is
// not limited.
func DecodeInteger(n Node) (*big.Int, error) {
	return DecodeIntegerAs(n, IdentifierInteger)
}

// DecodeIntegerAs decodes an INTEGER data value carrying the identifier id.
// The content octets are the signed two's-complement big-endian value and
// must use the minimal number of octets.
func DecodeIntegerAs(n Node, id asn1.Identifier) (*big.Int, error) {
	data, err := primitiveContent(n, id)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errInvalid("empty integer")
	}
	if len(data) > 1 && ((data[0] == 0x00 && data[1]&0x80 == 0x00) || (data[0] == 0xFF && data[1]&0x80 == 0x80)) {
		return nil, &asn1.Error{Kind: asn1.InvalidASN1IntegerEncoding, Err: errNotMinimalInt}
	}
	i := new(big.Int)
	if data[0]&0x80 == 0x80 {
		// negative integer, calculate 2s complement
		bs := make([]byte, len(data))
		for j, b := range data {
			bs[j] = ^b
		}
		i.SetBytes(bs)
		i.Add(i, bigOne)
		i.Neg(i)
	} else {
		i.SetBytes(data)
	}
	return i, nil
}

// DecodeInt64 decodes the INTEGER data value n into an int64. Values outside
// the int64 range are an error.
func DecodeInt64(n Node) (int64, error) {
	return DecodeInt64As(n, IdentifierInteger)
}

// DecodeInt64As decodes an INTEGER data value carrying the identifier id into
// an int64.
func DecodeInt64As(n Node, id asn1.Identifier) (int64, error) {
	i, err := DecodeIntegerAs(n, id)
	if err != nil {
		return 0, err
	}
	if !i.IsInt64() {
		return 0, errRange("integer does not fit into int64")
	}
	return i.Int64(), nil
}

// WriteInteger appends the encoding of the INTEGER v.
func (s *Serializer) WriteInteger(v *big.Int) error {
	return s.WriteIntegerAs(IdentifierInteger, v)
}

// WriteIntegerAs appends the encoding of the INTEGER v using the identifier
// id.
func (s *Serializer) WriteIntegerAs(id asn1.Identifier, v *big.Int) error {
	return s.AppendPrimitive(id, func(b *bytes.Buffer) error {
		writeTwosComplement(b, v)
		return nil
	})
}

// WriteInt64 appends the encoding of the INTEGER v.
func (s *Serializer) WriteInt64(v int64) error {
	return s.WriteInt64As(IdentifierInteger, v)
}

// WriteInt64As appends the encoding of the INTEGER v using the identifier id.
func (s *Serializer) WriteInt64As(id asn1.Identifier, v int64) error {
	return s.WriteIntegerAs(id, big.NewInt(v))
}

// writeTwosComplement appends the minimal signed two's-complement big-endian
// representation of v to b.
func writeTwosComplement(b *bytes.Buffer, v *big.Int) {
	switch v.Sign() {
	case 0:
		// Zero is written as a single zero octet rather than no octets.
		b.WriteByte(0x00)
	case 1:
		bs := v.Bytes()
		if bs[0]&0x80 != 0 {
			// Pad with 0x00 to stop the value looking like a negative number.
			b.WriteByte(0x00)
		}
		b.Write(bs)
	default:
		// A negative number has to be converted to two's-complement form. So
		// we'll subtract 1 from its magnitude and invert. If the most-significant bit isn't set
		// then we'll need to pad the beginning with 0xFF in order to keep the
		// number negative.
		n := new(big.Int).Neg(v)
		n.Sub(n, bigOne)
		bs := n.Bytes()
		for i := range bs {
			bs[i] ^= 0xFF
		}
		if len(bs) == 0 || bs[0]&0x80 == 0 {
			b.WriteByte(0xFF)
		}
		b.Write(bs)
	}
}

//endregion

//region [UNIVERSAL 3] BIT STRING

// DecodeBitString decodes the BIT STRING data value n.
func DecodeBitString(n Node) (asn1.BitString, error) {
	return DecodeBitStringAs(n, IdentifierBitString)
}

// DecodeBitStringAs decodes a BIT STRING data value carrying the identifier
// id. The first content octet holds the number of padding bits; DER requires
// the padding bits of the final octet to be zero. The returned BitString
// borrows the content octets of n.
func DecodeBitStringAs(n Node, id asn1.Identifier) (asn1.BitString, error) {
	data, err := primitiveContent(n, id)
	if err != nil {
		return asn1.BitString{}, err
	}
	if len(data) == 0 {
		return asn1.BitString{}, errInvalid("BIT STRING is missing the padding octet")
	}
	padding := data[0]
	rest := data[1:]
	if padding > 7 {
		return asn1.BitString{}, errInvalid("invalid padding bits in BIT STRING")
	}
	if len(rest) == 0 && padding != 0 {
		return asn1.BitString{}, errInvalid("padding bits in empty BIT STRING")
	}
	if padding > 0 && rest[len(rest)-1]&(1<<padding-1) != 0 {
		return asn1.BitString{}, errInvalid("non-zero padding bits in BIT STRING")
	}
	return asn1.BitString{Bytes: rest, BitLength: len(rest)*8 - int(padding)}, nil
}

// WriteBitString appends the encoding of the BIT STRING v.
func (s *Serializer) WriteBitString(v asn1.BitString) error {
	return s.WriteBitStringAs(IdentifierBitString, v)
}

// WriteBitStringAs appends the encoding of the BIT STRING v using the
// identifier id. The padding bits of the final octet are zeroed in the
// output.
func (s *Serializer) WriteBitStringAs(id asn1.Identifier, v asn1.BitString) error {
	if !v.IsValid() {
		return errInvalid("BitString is not valid")
	}
	return s.AppendPrimitive(id, func(b *bytes.Buffer) error {
		padding := byte(v.PaddingBits())
		b.WriteByte(padding)
		if len(v.Bytes) == 0 {
			return nil
		}
		b.Write(v.Bytes[:len(v.Bytes)-1])
		// zero out any padding bits
		b.WriteByte(v.Bytes[len(v.Bytes)-1] &^ byte(1<<padding-1))
		return nil
	})
}

//endregion

//region [UNIVERSAL 4] OCTET STRING

// DecodeOctetString decodes the OCTET STRING data value n.
func DecodeOctetString(n Node) ([]byte, error) {
	return DecodeOctetStringAs(n, IdentifierOctetString)
}

// DecodeOctetStringAs decodes an OCTET STRING data value carrying the
// identifier id. The returned slice borrows the content octets of n.
func DecodeOctetStringAs(n Node, id asn1.Identifier) ([]byte, error) {
	return primitiveContent(n, id)
}

// WriteOctetString appends the encoding of the OCTET STRING v.
func (s *Serializer) WriteOctetString(v []byte) error {
	return s.WriteOctetStringAs(IdentifierOctetString, v)
}

// WriteOctetStringAs appends the encoding of the OCTET STRING v using the
// identifier id.
func (s *Serializer) WriteOctetStringAs(id asn1.Identifier, v []byte) error {
	return s.AppendPrimitive(id, func(b *bytes.Buffer) error {
		b.Write(v)
		return nil
	})
}

//endregion

//region [UNIVERSAL 5] NULL

// DecodeNull decodes the NULL data value n.
func DecodeNull(n Node) (asn1.Null, error) {
	return DecodeNullAs(n, IdentifierNull)
}

// DecodeNullAs decodes a NULL data value carrying the identifier id. The
// content must be empty.
func DecodeNullAs(n Node, id asn1.Identifier) (asn1.Null, error) {
	data, err := primitiveContent(n, id)
	if err != nil {
		return asn1.Null{}, err
	}
	if len(data) != 0 {
		return asn1.Null{}, errInvalid("invalid NULL value")
	}
	return asn1.Null{}, nil
}

// WriteNull appends the encoding of a NULL data value.
func (s *Serializer) WriteNull() error {
	return s.WriteNullAs(IdentifierNull)
}

// WriteNullAs appends the encoding of a NULL data value using the identifier
// id.
func (s *Serializer) WriteNullAs(id asn1.Identifier) error {
	return s.AppendPrimitive(id, nil)
}

//endregion

//region [UNIVERSAL 6] OBJECT IDENTIFIER

// DecodeObjectIdentifier decodes the OBJECT IDENTIFIER data value n.
//
// The first sub-identifier packs the first two components as 40·c0 + c1. It
// is split by simple division, so a first sub-identifier of 120 decodes as
// components (3, 0) rather than (2, 40). [Serializer.WriteObjectIdentifier]
// produces such sub-identifiers for identifiers whose first component is 2
// and whose second component is 40 or more; those identifiers do not decode
// back to their original components.
func DecodeObjectIdentifier(n Node) (asn1.ObjectIdentifier, error) {
	return DecodeObjectIdentifierAs(n, IdentifierObjectIdentifier)
}

// DecodeObjectIdentifierAs decodes an OBJECT IDENTIFIER data value carrying
// the identifier id. Every sub-identifier must be minimally encoded.
func DecodeObjectIdentifierAs(n Node, id asn1.Identifier) (asn1.ObjectIdentifier, error) {
	data, err := primitiveContent(n, id)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errInvalid("zero length OBJECT IDENTIFIER")
	}
	r := bytes.NewReader(data)
	v, err := readSubIdentifier(r)
	if err != nil {
		return nil, err
	}
	// In the worst case every remaining sub-identifier is a single octet.
	oid := make(asn1.ObjectIdentifier, 2, 2+r.Len())
	oid[0], oid[1] = v/40, v%40
	for r.Len() > 0 {
		if v, err = readSubIdentifier(r); err != nil {
			return nil, err
		}
		oid = append(oid, v)
	}
	return oid, nil
}

// readSubIdentifier reads a single base-128 sub-identifier from r, mapping
// the encoding failures onto the error taxonomy.
func readSubIdentifier(r io.ByteReader) (uint, error) {
	v, err := base128.ReadMinimal(r)
	switch err {
	case nil:
		return v, nil
	case base128.ErrNotMinimal:
		return 0, errInvalid("sub-identifier has redundant leading octet")
	case base128.ErrOverflow:
		return 0, errRange("sub-identifier too large")
	default:
		return 0, errInvalid("truncated sub-identifier")
	}
}

// WriteObjectIdentifier appends the encoding of the OBJECT IDENTIFIER v.
func (s *Serializer) WriteObjectIdentifier(v asn1.ObjectIdentifier) error {
	return s.WriteObjectIdentifierAs(IdentifierObjectIdentifier, v)
}

// WriteObjectIdentifierAs appends the encoding of the OBJECT IDENTIFIER v
// using the identifier id. The components of v are validated via
// [asn1.ObjectIdentifier.Validate].
func (s *Serializer) WriteObjectIdentifierAs(id asn1.Identifier, v asn1.ObjectIdentifier) error {
	if err := v.Validate(); err != nil {
		return err
	}
	return s.AppendPrimitive(id, func(b *bytes.Buffer) error {
		base128.Write(b, 40*v[0]+v[1])
		for _, c := range v[2:] {
			base128.Write(b, c)
		}
		return nil
	})
}

//endregion

//region [UNIVERSAL 9] REAL

// DecodeReal decodes the REAL data value n.
func DecodeReal(n Node) (float64, error) {
	return DecodeRealAs(n, IdentifierReal)
}

// DecodeRealAs decodes a REAL data value carrying the identifier id. Empty
// content decodes to zero; the special values encode the infinities. Binary
// encodings with bases 2, 8 and 16 and any scale factor are accepted; the
// decimal character encoding is not supported.
func DecodeRealAs(n Node, id asn1.Identifier) (float64, error) {
	data, err := primitiveContent(n, id)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	b := data[0]
	switch {
	case b == 0x40:
		return math.Inf(1), nil
	case b == 0x41:
		return math.Inf(-1), nil
	case b&0xC0 == 0x40:
		return 0, errInvalid("unsupported special REAL value")
	case b&0x80 == 0:
		return 0, errInvalid("decimal REAL encoding is not supported")
	}
	return parseBinaryReal(b, data[1:])
}

// parseBinaryReal decodes the binary REAL representation. b is the
// information octet, rest holds the exponent and mantissa octets. The value
// is sign · mantissa · 2^scale · base^exponent.
func parseBinaryReal(b byte, rest []byte) (float64, error) {
	sign := uint64(b&0x40) >> 6
	baseCode := (b & 0x30) >> 4
	if baseCode > 2 {
		return 0, errInvalid("invalid REAL base")
	}
	scale := (b & 0x0C) >> 2
	es := 1 + int(b&0x03)
	if es >= 4 {
		if len(rest) == 0 {
			return 0, errInvalid("missing exponent length octet")
		}
		es = int(rest[0])
		rest = rest[1:]
		if es == 0 {
			return 0, errInvalid("invalid exponent length")
		}
	}
	if es > 8 {
		return 0, errRange("exponent too large")
	}
	if len(rest) < es {
		return 0, errInvalid("truncated exponent")
	}
	var e int64
	for i := 0; i < es; i++ {
		e = e<<8 | int64(rest[i])
		if i == 1 && (e&0xFF80 == 0xFF80 || e&0xFF80 == 0x0000) {
			return 0, errInvalid("non-minimal exponent")
		}
	}
	// Shift up and down in order to sign extend the exponent.
	e <<= 64 - es*8
	e >>= 64 - es*8

	// float64 uses base 2. Scale the exponent for base 8 and 16 and apply
	// the scale factor.
	e = e<<baseCode + e*int64(baseCode&0b01)
	e += int64(scale)

	var m uint64
	for _, c := range rest[es:] {
		if m&(0xFF<<56) != 0 {
			if m&0xFF != 0 || e >= math.MaxInt64-8 {
				return 0, errRange("mantissa too large")
			}
			m >>= 8
			e += 8
		}
		m = m<<8 | uint64(c)
	}
	if m == 0 {
		return 0, errInvalid("zero mantissa")
	}

	// Normalize m to 52 fraction bits plus a leading 1 in bit 52, keeping
	// m · 2^e invariant.
	zeros := bits.LeadingZeros64(m)
	if zeros >= 11 {
		m <<= zeros - 11
	} else if bits.TrailingZeros64(m) >= 11-zeros {
		m >>= 11 - zeros
	} else {
		return 0, errRange("mantissa exceeds float64 precision")
	}
	e += int64(11 - zeros)

	e += 52
	if e > 1023 {
		return 0, errRange("exponent exceeds float64 range")
	}
	if e < -1022 {
		// Subnormal range: move the leading bit into the fraction. This only
		// works without losing precision if the mantissa has enough trailing
		// zeros.
		shift := int(-1022 - e)
		if shift > 52 || bits.TrailingZeros64(m) < shift {
			return 0, errRange("value too small for float64")
		}
		m >>= shift
		e = -1023 // biased exponent 0
	}
	return math.Float64frombits(sign<<63 | uint64(e+1023)<<52 | m&^(1<<52)), nil
}

// WriteReal appends the encoding of the REAL v.
func (s *Serializer) WriteReal(v float64) error {
	return s.WriteRealAs(IdentifierReal, v)
}

// WriteRealAs appends the encoding of the REAL v using the identifier id.
// Finite non-zero values are emitted in the minimal base-2 binary form with a
// zero scale factor; zero is emitted with empty content and does not preserve
// its sign. NaN cannot be encoded.
func (s *Serializer) WriteRealAs(id asn1.Identifier, v float64) error {
	if math.IsNaN(v) {
		return errInvalid("cannot encode NaN")
	}
	return s.AppendPrimitive(id, func(b *bytes.Buffer) error {
		switch {
		case math.IsInf(v, 1):
			b.WriteByte(0x40)
			return nil
		case math.IsInf(v, -1):
			b.WriteByte(0x41)
			return nil
		case v == 0:
			return nil
		}

		// Compute an integer mantissa and exponent with the mantissa odd.
		bts := math.Float64bits(v)
		frac := bts & (1<<52 - 1)
		expField := int(bts >> 52 & 0x7FF)
		var m uint64
		var e int
		if expField == 0 {
			// subnormal: no implicit leading bit, exponent uses bias -1022
			m = frac
			e = -52 - 1022
		} else {
			m = 1<<52 | frac
			e = -52 + expField - 1023
		}
		shift := bits.TrailingZeros64(m)
		m >>= shift
		e += shift

		// An IEEE 754 double never needs more than two exponent octets, so
		// the octet count fits the two indicator bits directly.
		el := (bits.Len(uint(max(e, -e-1))) + 1 + 7) / 8
		ml := (bits.Len64(m) + 7) / 8 // mantissa is never 0
		b.WriteByte(0x80 | byte(bts>>63)<<6 | byte(el-1))
		for i := el; i > 0; i-- {
			b.WriteByte(byte(e >> (8 * (i - 1))))
		}
		for i := ml; i > 0; i-- {
			b.WriteByte(byte(m >> (8 * (i - 1))))
		}
		return nil
	})
}

//endregion

//region string types

// The string types share their content rules: the content octets are the raw
// bytes of the string. They differ only in their default identifier. The
// codec layer does not enforce the IA5String/PrintableString character-set
// restrictions; use the IsValid methods of the respective types.

// DecodeUTF8String decodes the UTF8String data value n.
func DecodeUTF8String(n Node) (asn1.UTF8String, error) {
	s, err := decodeString(n, IdentifierUTF8String)
	return asn1.UTF8String(s), err
}

// DecodeUTF8StringAs decodes a UTF8String data value carrying the identifier
// id.
func DecodeUTF8StringAs(n Node, id asn1.Identifier) (asn1.UTF8String, error) {
	s, err := decodeString(n, id)
	return asn1.UTF8String(s), err
}

// DecodeIA5String decodes the IA5String data value n.
func DecodeIA5String(n Node) (asn1.IA5String, error) {
	s, err := decodeString(n, IdentifierIA5String)
	return asn1.IA5String(s), err
}

// DecodeIA5StringAs decodes an IA5String data value carrying the identifier
// id.
func DecodeIA5StringAs(n Node, id asn1.Identifier) (asn1.IA5String, error) {
	s, err := decodeString(n, id)
	return asn1.IA5String(s), err
}

// DecodePrintableString decodes the PrintableString data value n.
func DecodePrintableString(n Node) (asn1.PrintableString, error) {
	s, err := decodeString(n, IdentifierPrintableString)
	return asn1.PrintableString(s), err
}

// DecodePrintableStringAs decodes a PrintableString data value carrying the
// identifier id.
func DecodePrintableStringAs(n Node, id asn1.Identifier) (asn1.PrintableString, error) {
	s, err := decodeString(n, id)
	return asn1.PrintableString(s), err
}

func decodeString(n Node, id asn1.Identifier) (string, error) {
	data, err := primitiveContent(n, id)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteUTF8String appends the encoding of the UTF8String v.
func (s *Serializer) WriteUTF8String(v asn1.UTF8String) error {
	return s.writeString(IdentifierUTF8String, string(v))
}

// WriteUTF8StringAs appends the encoding of the UTF8String v using the
// identifier id.
func (s *Serializer) WriteUTF8StringAs(id asn1.Identifier, v asn1.UTF8String) error {
	return s.writeString(id, string(v))
}

// WriteIA5String appends the encoding of the IA5String v.
func (s *Serializer) WriteIA5String(v asn1.IA5String) error {
	return s.writeString(IdentifierIA5String, string(v))
}

// WriteIA5StringAs appends the encoding of the IA5String v using the
// identifier id.
func (s *Serializer) WriteIA5StringAs(id asn1.Identifier, v asn1.IA5String) error {
	return s.writeString(id, string(v))
}

// WritePrintableString appends the encoding of the PrintableString v.
func (s *Serializer) WritePrintableString(v asn1.PrintableString) error {
	return s.writeString(IdentifierPrintableString, string(v))
}

// WritePrintableStringAs appends the encoding of the PrintableString v using
// the identifier id.
func (s *Serializer) WritePrintableStringAs(id asn1.Identifier, v asn1.PrintableString) error {
	return s.writeString(id, string(v))
}

func (s *Serializer) writeString(id asn1.Identifier, v string) error {
	return s.AppendPrimitive(id, func(b *bytes.Buffer) error {
		b.WriteString(v)
		return nil
	})
}

//endregion

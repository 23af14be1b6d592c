// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1

// ErrorKind identifies the category of an encoding or decoding failure. The
// set of kinds is closed; encoding rules map every failure onto one of the
// constants below. ErrorKind implements the error interface so that a kind
// can be used as a match target for [errors.Is]:
//
//	if errors.Is(err, asn1.TruncatedASN1Field) { ... }
type ErrorKind uint8

const (
	// InvalidASN1Object indicates a structural or constraint violation:
	// misplaced end-of-contents markers, excessive nesting or node counts,
	// trailing bytes, malformed value contents and the like.
	InvalidASN1Object ErrorKind = iota + 1

	// TruncatedASN1Field indicates that the input ran out in the middle of a
	// tag-length-value construct.
	TruncatedASN1Field

	// UnsupportedFieldLength indicates a length encoding that the selected
	// rule set does not permit, such as the indefinite form under DER or
	// non-minimal length octets.
	UnsupportedFieldLength

	// UnexpectedFieldType indicates an identifier mismatch or a
	// primitive/constructed shape mismatch during typed decoding.
	UnexpectedFieldType

	// ValueOutOfRange indicates a numeric conversion outside the range
	// supported by the requested Go type.
	ValueOutOfRange

	// MalformedASN1Identifier indicates an invalid identifier encoding, such
	// as a non-minimal multi-octet tag number.
	MalformedASN1Identifier

	// InvalidASN1IntegerEncoding indicates a redundant leading 0x00 or 0xFF
	// octet in an INTEGER encoding.
	InvalidASN1IntegerEncoding

	// TooFewOIDComponents indicates an attempt to construct an OBJECT
	// IDENTIFIER from fewer than two components.
	TooFewOIDComponents
)

// String returns a short description of k.
func (k ErrorKind) String() string {
	switch k {
	case InvalidASN1Object:
		return "invalid ASN.1 object"
	case TruncatedASN1Field:
		return "truncated ASN.1 field"
	case UnsupportedFieldLength:
		return "unsupported field length"
	case UnexpectedFieldType:
		return "unexpected field type"
	case ValueOutOfRange:
		return "value out of range"
	case MalformedASN1Identifier:
		return "malformed ASN.1 identifier"
	case InvalidASN1IntegerEncoding:
		return "invalid ASN.1 integer encoding"
	case TooFewOIDComponents:
		return "too few OID components"
	}
	return "unknown error"
}

// Error implements the error interface.
func (k ErrorKind) Error() string {
	return k.String()
}

// Error is the error type produced by the encoding-rule subpackages. Every
// Error carries the [ErrorKind] it belongs to as well as an underlying error
// describing the specific failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying error of e.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether e matches target. An [ErrorKind] target matches iff it
// equals the kind of e. This powers [errors.Is] matching against the kind
// constants.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

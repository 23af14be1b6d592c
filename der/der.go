// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package der implements the ASN.1 Distinguished Encoding Rules (DER), the
// canonical subset of the Basic Encoding Rules defined in [Rec. ITU-T X.690].
// See also “[A Layman's Guide to a Subset of ASN.1, BER, and DER]”.
//
// # Parsing
//
// [Parse] decodes a byte buffer into a tree of tagged nodes. The tree is
// stored as a single flat, pre-order vector of nodes annotated with their
// nesting depth; a [Node] is a lightweight view into that vector and child
// iteration is performed by depth-based subtree scans rather than by building
// owning substructures. Nodes and iterators borrow from the parsed input and
// remain valid as long as the input buffer is not mutated.
//
// Parsing is strict: non-minimal identifier or length encodings, trailing
// bytes and indefinite lengths are rejected. The nesting depth and the total
// number of nodes are bounded by [MaxDepth] and [MaxNodeCount].
//
// # Serializing
//
// A [Serializer] accumulates tag-length-value encodings in an in-memory
// buffer. Primitive and constructed data values are written through
// [Serializer.AppendPrimitive] and [Serializer.AppendConstructed]; the value
// codecs in this package layer the universal ASN.1 types on top of these.
// A Serializer never emits the indefinite-length form.
//
// Parsers and serializers are not safe for concurrent use, but any number of
// them may operate in parallel on disjoint buffers, and a parsed node vector
// is immutable and may be shared across goroutines.
//
// [Rec. ITU-T X.690]: https://www.itu.int/rec/T-REC-X.690
// [A Layman's Guide to a Subset of ASN.1, BER, and DER]: http://luca.ntop.org/Teaching/Appunti/asn1.html
package der

import (
	"errors"

	"derlib.dev/asn1"
)

// MaxDepth is the maximum nesting depth of constructed data values accepted
// by the parser. The depth of a top-level data value is 1.
const MaxDepth = 50

// MaxNodeCount is the maximum total number of data values accepted by a
// single parse.
const MaxNodeCount = 100_000

// ruleSet selects the conformance level of the parser. The public API only
// exposes the Distinguished Encoding Rules; the Basic Encoding Rules variant
// exists for embedding in permissive protocols.
type ruleSet uint8

const (
	// ruleDER enforces the Distinguished Encoding Rules: definite lengths
	// only, encoded with the minimum number of octets.
	ruleDER ruleSet = iota
	// ruleBER additionally accepts the constructed indefinite-length format
	// and non-minimal length octets.
	ruleBER
)

// Parse decodes a single DER-encoded data value from b and returns a [Node]
// view of it. The entire buffer must be consumed by that data value; leading
// or trailing extra bytes are an error.
//
// The returned Node and everything derived from it borrow from b; b must not
// be modified while they are in use.
func Parse(b []byte) (Node, error) {
	nodes, err := parseInput(b, ruleDER)
	if err != nil {
		return Node{}, err
	}
	if len(nodes) == 0 {
		return Node{}, errInvalid("expected exactly one data value")
	}
	for _, n := range nodes[1:] {
		if n.depth == 1 {
			return Node{}, errInvalid("trailing data after data value")
		}
	}
	return Node{nodes: nodes}, nil
}

// Sequence decodes the contents of the SEQUENCE node n using build. The
// builder is handed an iterator over the direct children of n and must
// consume every child; leftover children are an error. This turns a forgotten
// optional field into a loud failure instead of silent data loss.
func Sequence[T any](n Node, build func(*Iterator) (T, error)) (T, error) {
	var zero T
	if n.Identifier() != IdentifierSequence {
		return zero, errType("expected SEQUENCE, got " + n.Identifier().String())
	}
	it, err := n.Children()
	if err != nil {
		return zero, err
	}
	v, err := build(it)
	if err != nil {
		return zero, err
	}
	if _, ok := it.Peek(); ok {
		return zero, errInvalid("SEQUENCE has unconsumed data values")
	}
	return v, nil
}

// SequenceOf decodes every child of the SEQUENCE node n using parse and
// returns the decoded values in order.
func SequenceOf[T any](n Node, parse func(Node) (T, error)) ([]T, error) {
	return Sequence(n, func(it *Iterator) ([]T, error) {
		var vs []T
		for {
			child, ok := it.Next()
			if !ok {
				return vs, nil
			}
			v, err := parse(child)
			if err != nil {
				return nil, err
			}
			vs = append(vs, v)
		}
	})
}

// The err* helpers construct [asn1.Error] values of the respective kind.

func errInvalid(msg string) error {
	return &asn1.Error{Kind: asn1.InvalidASN1Object, Err: errors.New(msg)}
}

func errTruncated(msg string) error {
	return &asn1.Error{Kind: asn1.TruncatedASN1Field, Err: errors.New(msg)}
}

func errLength(msg string) error {
	return &asn1.Error{Kind: asn1.UnsupportedFieldLength, Err: errors.New(msg)}
}

func errType(msg string) error {
	return &asn1.Error{Kind: asn1.UnexpectedFieldType, Err: errors.New(msg)}
}

func errIdentifier(msg string) error {
	return &asn1.Error{Kind: asn1.MalformedASN1Identifier, Err: errors.New(msg)}
}

func errRange(msg string) error {
	return &asn1.Error{Kind: asn1.ValueOutOfRange, Err: errors.New(msg)}
}

// errNotMinimalInt is shared so that redundant leading octets in INTEGER
// encodings produce a stable message.
var errNotMinimalInt = errors.New("integer not minimally-encoded")

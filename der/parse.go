// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package der

import (
	"io"
	"math"

	"derlib.dev/asn1"
	"derlib.dev/asn1/internal/base128"
)

// flatNode is one entry of the flat node vector produced by a parse. The
// vector stores the tree in pre-order; depth is 1-based with top-level data
// values at depth 1. encoded spans the whole tag-length-value construct,
// data only the content octets of primitive data values.
type flatNode struct {
	id          asn1.Identifier
	depth       int
	constructed bool
	encoded     []byte
	data        []byte
}

// parser decodes a byte buffer into a flat node vector by recursive descent.
// All reads are bounded by the end offset of the enclosing data value so that
// a child can never escape its parent.
type parser struct {
	buf   []byte
	off   int
	rules ruleSet
	nodes []flatNode
}

// parseInput decodes all top-level data values from b. The input must consist
// of complete tag-length-value constructs; anything else is an error.
func parseInput(b []byte, rules ruleSet) ([]flatNode, error) {
	p := &parser{buf: b, rules: rules}
	for p.off < len(p.buf) {
		if err := p.parseNode(len(p.buf), 1); err != nil {
			return nil, err
		}
	}
	return p.nodes, nil
}

// parseNode decodes a single data value starting at the current offset,
// appending it and all of its descendants to the node vector. Reads beyond
// end fail as truncation.
func (p *parser) parseNode(end, depth int) error {
	if depth > MaxDepth {
		return errInvalid("nesting too deep")
	}
	start := p.off
	id, constructed, err := p.readIdentifier(end)
	if err != nil {
		return err
	}
	if id == (asn1.Identifier{}) {
		// end-of-contents markers are matched literally by the
		// indefinite-length loop below; the reserved tag is invalid anywhere
		// else.
		return errInvalid("unexpected end-of-contents")
	}
	length, indefinite, err := p.readLength(end)
	if err != nil {
		return err
	}

	if indefinite {
		if !constructed {
			return errLength("indefinite length on primitive data value")
		}
		idx, err := p.emit(flatNode{id: id, depth: depth, constructed: true})
		if err != nil {
			return err
		}
		for {
			if p.off+2 <= end && p.buf[p.off] == 0x00 && p.buf[p.off+1] == 0x00 {
				p.off += 2
				break
			}
			if p.off >= end {
				return errTruncated("missing end-of-contents")
			}
			if err := p.parseNode(end, depth+1); err != nil {
				return err
			}
		}
		p.nodes[idx].encoded = p.buf[start:p.off]
		return nil
	}

	if length > end-p.off {
		return errTruncated("data value exceeds input")
	}
	contentEnd := p.off + length
	encoded := p.buf[start:contentEnd]

	if !constructed {
		data := p.buf[p.off:contentEnd]
		p.off = contentEnd
		_, err := p.emit(flatNode{id: id, depth: depth, constructed: false, encoded: encoded, data: data})
		return err
	}
	if _, err := p.emit(flatNode{id: id, depth: depth, constructed: true, encoded: encoded}); err != nil {
		return err
	}
	for p.off < contentEnd {
		if err := p.parseNode(contentEnd, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// emit appends n to the node vector, enforcing the node cap.
func (p *parser) emit(n flatNode) (int, error) {
	if len(p.nodes) >= MaxNodeCount {
		return 0, errInvalid("too many data values")
	}
	p.nodes = append(p.nodes, n)
	return len(p.nodes) - 1, nil
}

// readIdentifier decodes the identifier octets of a data value. The
// constructed bit is stripped from the returned identifier and reported
// separately.
func (p *parser) readIdentifier(end int) (asn1.Identifier, bool, error) {
	b, err := p.readByte(end)
	if err != nil {
		return asn1.Identifier{}, false, err
	}
	id := asn1.Identifier{Class: asn1.Class(b >> 6), Number: uint(b & 0x1f)}
	constructed := b&0x20 == 0x20

	// If the bottom five bits are set, the tag number follows in base-128
	// continuation octets.
	if b&0x1f == 0x1f {
		n, err := base128.ReadMinimal(byteReaderFunc(func() (byte, error) {
			return p.readByte(end)
		}))
		switch {
		case err == base128.ErrNotMinimal:
			return id, constructed, errIdentifier("redundant leading octet in tag number")
		case err == base128.ErrOverflow:
			return id, constructed, errIdentifier("tag number too large")
		case err != nil:
			return id, constructed, err
		}
		if n < 31 {
			return id, constructed, errIdentifier("multi-octet encoding of low tag number")
		}
		id.Number = n
	}
	return id, constructed, nil
}

// readLength decodes the length octets of a data value. The second return
// value indicates the indefinite form, which is only permitted by the BER
// rule set.
func (p *parser) readLength(end int) (int, bool, error) {
	b, err := p.readByte(end)
	if err != nil {
		return 0, false, err
	}
	if b&0x80 == 0 {
		// The length is encoded in the bottom 7 bits.
		return int(b & 0x7f), false, nil
	}
	if b == 0x80 {
		if p.rules != ruleBER {
			return 0, false, errLength("indefinite length")
		}
		return 0, true, nil
	}

	// Bottom 7 bits give the number of length octets to follow.
	numBytes := int(b & 0x7f)
	if numBytes == 127 {
		return 0, false, errLength("reserved length form")
	}
	length := 0
	for i := 0; i < numBytes; i++ {
		if b, err = p.readByte(end); err != nil {
			return 0, false, err
		}
		if i == 0 && b == 0x00 && p.rules != ruleBER {
			return 0, false, errLength("length has redundant leading zero")
		}
		if length > math.MaxInt>>8 {
			return 0, false, errLength("length too large")
		}
		length = length<<8 | int(b)
	}
	if length < 128 && p.rules != ruleBER {
		return 0, false, errLength("long length form for short length")
	}
	return length, false, nil
}

// readByte reads the byte at the current offset. Reading at or beyond end
// reports truncation.
func (p *parser) readByte(end int) (byte, error) {
	if p.off >= end {
		return 0, errTruncated("unexpected end of input")
	}
	b := p.buf[p.off]
	p.off++
	return b, nil
}

// byteReaderFunc adapts a function to the io.ByteReader interface.
type byteReaderFunc func() (byte, error)

func (f byteReaderFunc) ReadByte() (byte, error) { return f() }

var _ io.ByteReader = byteReaderFunc(nil)

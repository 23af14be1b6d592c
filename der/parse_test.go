// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package der

import (
	"bytes"
	"errors"
	"testing"

	"derlib.dev/asn1"
)

// uni and ctx build universal and context-specific identifiers for tests.
func uni(n uint) asn1.Identifier {
	return asn1.Identifier{Class: asn1.ClassUniversal, Number: n}
}

func ctx(n uint) asn1.Identifier {
	return asn1.Identifier{Class: asn1.ClassContextSpecific, Number: n}
}

// mustParse parses data and fails the test on error.
func mustParse(t *testing.T, data []byte) Node {
	t.Helper()
	n, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(% X) error = %v", data, err)
	}
	return n
}

func TestParse(t *testing.T) {
	tests := map[string]struct {
		data        []byte
		id          asn1.Identifier
		constructed bool
	}{
		"Boolean":    {[]byte{0x01, 0x01, 0xFF}, uni(asn1.TagBoolean), false},
		"EmptySeq":   {[]byte{0x30, 0x00}, uni(asn1.TagSequence), true},
		"Context":    {[]byte{0x81, 0x01, 0x2A}, ctx(1), false},
		"LongTag":    {[]byte{0x9F, 0x64, 0x01, 0xAA}, ctx(100), false},
		"LongLength": {append([]byte{0x04, 0x81, 0xC8}, bytes.Repeat([]byte{0x61}, 200)...), uni(asn1.TagOctetString), false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			n := mustParse(t, tt.data)
			if got := n.Identifier(); got != tt.id {
				t.Errorf("Identifier() = %v, want %v", got, tt.id)
			}
			if got := n.Constructed(); got != tt.constructed {
				t.Errorf("Constructed() = %t, want %t", got, tt.constructed)
			}
			if got := n.EncodedBytes(); !bytes.Equal(got, tt.data) {
				t.Errorf("EncodedBytes() = % X, want % X", got, tt.data)
			}
		})
	}
}

func TestParse_errors(t *testing.T) {
	tests := map[string]struct {
		data    []byte
		wantErr error
	}{
		"Empty":             {nil, asn1.InvalidASN1Object},
		"TrailingData":      {[]byte{0x05, 0x00, 0x05, 0x00}, asn1.InvalidASN1Object},
		"NoLength":          {[]byte{0x30}, asn1.TruncatedASN1Field},
		"TruncatedValue":    {[]byte{0x02, 0x03, 0x01}, asn1.TruncatedASN1Field},
		"TruncatedChild":    {[]byte{0x30, 0x05, 0x02, 0x01, 0x01}, asn1.TruncatedASN1Field},
		"ChildExceeds":      {[]byte{0x30, 0x03, 0x02, 0x04, 0x01}, asn1.TruncatedASN1Field},
		"Indefinite":        {[]byte{0x30, 0x80, 0x02, 0x01, 0x01, 0x00, 0x00}, asn1.UnsupportedFieldLength},
		"NonMinimalLength":  {append([]byte{0x04, 0x82, 0x00, 0xC8}, bytes.Repeat([]byte{0x61}, 200)...), asn1.UnsupportedFieldLength},
		"LongFormShort":     {append([]byte{0x04, 0x81, 0x7F}, bytes.Repeat([]byte{0x61}, 127)...), asn1.UnsupportedFieldLength},
		"ReservedLength":    {[]byte{0x04, 0xFF, 0x00}, asn1.UnsupportedFieldLength},
		"EndOfContents":     {[]byte{0x00, 0x00}, asn1.InvalidASN1Object},
		"LowTagLongForm":    {[]byte{0x1F, 0x1E, 0x00}, asn1.MalformedASN1Identifier},
		"TagLeadingZero":    {[]byte{0x9F, 0x80, 0x64, 0x00}, asn1.MalformedASN1Identifier},
		"TagTruncated":      {[]byte{0x9F, 0xE4}, asn1.TruncatedASN1Field},
		"TagTooLarge":       {[]byte{0x9F, 0x81, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00, 0x00}, asn1.MalformedASN1Identifier},
		"LengthOctetsShort": {[]byte{0x04, 0x82, 0xC8}, asn1.TruncatedASN1Field},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_depthLimit(t *testing.T) {
	// nested builds depth levels of nested SEQUENCEs around an empty
	// innermost SEQUENCE.
	nested := func(depth int) []byte {
		b := []byte{0x30, 0x00}
		for i := 1; i < depth; i++ {
			b = append([]byte{0x30, byte(len(b))}, b...)
		}
		return b
	}
	if _, err := Parse(nested(MaxDepth)); err != nil {
		t.Errorf("Parse() error = %v for depth %d, want nil", err, MaxDepth)
	}
	if _, err := Parse(nested(MaxDepth + 1)); !errors.Is(err, asn1.InvalidASN1Object) {
		t.Errorf("Parse() error = %v for depth %d, want %v", err, MaxDepth+1, asn1.InvalidASN1Object)
	}
}

func TestParse_nodeLimit(t *testing.T) {
	// flat builds a SEQUENCE with n NULL children.
	flat := func(n int) []byte {
		content := bytes.Repeat([]byte{0x05, 0x00}, n)
		b := []byte{0x30, 0x83, byte(len(content) >> 16), byte(len(content) >> 8), byte(len(content))}
		return append(b, content...)
	}
	if _, err := Parse(flat(MaxNodeCount - 1)); err != nil {
		t.Errorf("Parse() error = %v for %d nodes, want nil", err, MaxNodeCount)
	}
	if _, err := Parse(flat(MaxNodeCount)); !errors.Is(err, asn1.InvalidASN1Object) {
		t.Errorf("Parse() error = %v for %d nodes, want %v", err, MaxNodeCount+1, asn1.InvalidASN1Object)
	}
}

func TestParseInput_ber(t *testing.T) {
	t.Run("Indefinite", func(t *testing.T) {
		data := []byte{0x30, 0x80, 0x02, 0x01, 0x01, 0x00, 0x00}
		nodes, err := parseInput(data, ruleBER)
		if err != nil {
			t.Fatalf("parseInput() error = %v", err)
		}
		if len(nodes) != 2 {
			t.Fatalf("parseInput() produced %d nodes, want 2", len(nodes))
		}
		if !bytes.Equal(nodes[0].encoded, data) {
			t.Errorf("root encoded = % X, want % X", nodes[0].encoded, data)
		}
		if nodes[1].depth != 2 || !bytes.Equal(nodes[1].data, []byte{0x01}) {
			t.Errorf("child = %+v", nodes[1])
		}
	})
	t.Run("NestedIndefinite", func(t *testing.T) {
		data := []byte{0x30, 0x80, 0x30, 0x80, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00}
		nodes, err := parseInput(data, ruleBER)
		if err != nil {
			t.Fatalf("parseInput() error = %v", err)
		}
		if len(nodes) != 3 {
			t.Fatalf("parseInput() produced %d nodes, want 3", len(nodes))
		}
		if !bytes.Equal(nodes[1].encoded, data[2:8]) {
			t.Errorf("inner encoded = % X, want % X", nodes[1].encoded, data[2:8])
		}
	})
	t.Run("NonMinimalLength", func(t *testing.T) {
		// BER accepts redundant length octets.
		if _, err := parseInput([]byte{0x05, 0x81, 0x00}, ruleBER); err != nil {
			t.Errorf("parseInput() error = %v, want nil", err)
		}
	})
	t.Run("IndefinitePrimitive", func(t *testing.T) {
		_, err := parseInput([]byte{0x04, 0x80, 0x00, 0x00}, ruleBER)
		if !errors.Is(err, asn1.UnsupportedFieldLength) {
			t.Errorf("parseInput() error = %v, want %v", err, asn1.UnsupportedFieldLength)
		}
	})
	t.Run("MissingEndOfContents", func(t *testing.T) {
		_, err := parseInput([]byte{0x30, 0x80, 0x05, 0x00}, ruleBER)
		if !errors.Is(err, asn1.TruncatedASN1Field) {
			t.Errorf("parseInput() error = %v, want %v", err, asn1.TruncatedASN1Field)
		}
	})
	t.Run("StrayEndOfContents", func(t *testing.T) {
		_, err := parseInput([]byte{0x00, 0x00}, ruleBER)
		if !errors.Is(err, asn1.InvalidASN1Object) {
			t.Errorf("parseInput() error = %v, want %v", err, asn1.InvalidASN1Object)
		}
	})
}

func TestParse_preOrder(t *testing.T) {
	// SEQUENCE { SEQUENCE { INTEGER 1 }, BOOLEAN true }
	data := []byte{0x30, 0x08, 0x30, 0x03, 0x02, 0x01, 0x01, 0x01, 0x01, 0xFF}
	nodes, err := parseInput(data, ruleDER)
	if err != nil {
		t.Fatalf("parseInput() error = %v", err)
	}
	wantDepths := []int{1, 2, 3, 2}
	if len(nodes) != len(wantDepths) {
		t.Fatalf("parseInput() produced %d nodes, want %d", len(nodes), len(wantDepths))
	}
	for i, d := range wantDepths {
		if nodes[i].depth != d {
			t.Errorf("nodes[%d].depth = %d, want %d", i, nodes[i].depth, d)
		}
	}
}

// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1

import (
	"errors"
	"testing"
)

func TestIdentifier_String(t *testing.T) {
	tests := map[string]struct {
		id   Identifier
		want string
	}{
		"Universal":       {Identifier{ClassUniversal, TagSequence}, "[UNIVERSAL 16]"},
		"Application":     {Identifier{ClassApplication, 5}, "[APPLICATION 5]"},
		"ContextSpecific": {Identifier{ClassContextSpecific, 0}, "[0]"},
		"Private":         {Identifier{ClassPrivate, 100}, "[PRIVATE 100]"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.id.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdentifier_LongForm(t *testing.T) {
	tests := []struct {
		number uint
		want   bool
	}{
		{0, false},
		{30, false},
		{31, true},
		{100, true},
	}
	for _, tt := range tests {
		id := Identifier{ClassContextSpecific, tt.number}
		if got := id.LongForm(); got != tt.want {
			t.Errorf("LongForm() of %v = %t, want %t", id, got, tt.want)
		}
	}
}

func TestIdentifier_equality(t *testing.T) {
	a := Identifier{ClassContextSpecific, 5}
	if a != (Identifier{ClassContextSpecific, 5}) {
		t.Errorf("identical identifiers compare unequal")
	}
	if a == (Identifier{ClassApplication, 5}) {
		t.Errorf("identifiers with different classes compare equal")
	}
	if a == (Identifier{ClassContextSpecific, 6}) {
		t.Errorf("identifiers with different numbers compare equal")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{Kind: TruncatedASN1Field, Err: errors.New("unexpected end of input")}
	if !errors.Is(err, TruncatedASN1Field) {
		t.Errorf("errors.Is() does not match the kind of the error")
	}
	if errors.Is(err, InvalidASN1Object) {
		t.Errorf("errors.Is() matches a foreign kind")
	}
	if got, want := err.Error(), "truncated ASN.1 field: unexpected end of input"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorKind_String(t *testing.T) {
	kinds := []ErrorKind{
		InvalidASN1Object,
		TruncatedASN1Field,
		UnsupportedFieldLength,
		UnexpectedFieldType,
		ValueOutOfRange,
		MalformedASN1Identifier,
		InvalidASN1IntegerEncoding,
		TooFewOIDComponents,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		s := k.String()
		if s == "" || s == "unknown error" {
			t.Errorf("ErrorKind(%d).String() = %q", k, s)
		}
		if seen[s] {
			t.Errorf("duplicate description %q", s)
		}
		seen[s] = true
	}
}

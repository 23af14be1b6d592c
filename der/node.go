// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package der

import "derlib.dev/asn1"

// Node is a view of a single data value within a parsed tree. Nodes are
// cheap to copy and borrow from the flat node vector built by [Parse]; they
// must not outlive the parsed input buffer.
//
// The zero Node is not valid; Nodes are obtained from [Parse] or from an
// [Iterator].
type Node struct {
	nodes []flatNode
	i     int
}

// Identifier returns the identifier of the data value.
func (n Node) Identifier() asn1.Identifier {
	return n.nodes[n.i].id
}

// Constructed reports whether the data value uses the constructed encoding,
// i.e. whether bit 0x20 was set in its identifier octet.
func (n Node) Constructed() bool {
	return n.nodes[n.i].constructed
}

// EncodedBytes returns the complete encoding of the data value, including its
// identifier and length octets. The slice borrows from the parsed input.
func (n Node) EncodedBytes() []byte {
	return n.nodes[n.i].encoded
}

// Bytes returns the content octets of a primitive data value. Calling Bytes
// on a constructed data value is an error.
func (n Node) Bytes() ([]byte, error) {
	if n.nodes[n.i].constructed {
		return nil, errType(n.Identifier().String() + " uses the constructed encoding")
	}
	return n.nodes[n.i].data, nil
}

// Children returns an iterator over the direct children of a constructed
// data value. Calling Children on a primitive data value is an error.
//
// Each call returns a fresh iterator starting at the first child.
func (n Node) Children() (*Iterator, error) {
	if !n.nodes[n.i].constructed {
		return nil, errType(n.Identifier().String() + " uses the primitive encoding")
	}
	d := n.nodes[n.i].depth
	return &Iterator{
		nodes:  n.nodes,
		cursor: n.i + 1,
		end:    subtreeEnd(n.nodes, n.i),
		depth:  d + 1,
	}, nil
}

// subtreeEnd returns the index one past the last descendant of the node at
// index i: the first later index whose depth does not exceed depth[i], or the
// overall end of the vector.
func subtreeEnd(nodes []flatNode, i int) int {
	d := nodes[i].depth
	j := i + 1
	for j < len(nodes) && nodes[j].depth > d {
		j++
	}
	return j
}

// Iterator walks the direct children of a constructed data value. Iterators
// are single-pass; copying an Iterator value yields an independent cursor, so
// a copy can be used to look ahead without disturbing the original.
type Iterator struct {
	nodes  []flatNode
	cursor int
	end    int
	depth  int // depth of the children being iterated
}

// Next returns the next child and advances the iterator past the child's
// entire subtree. The second return value is false once all children have
// been consumed.
func (it *Iterator) Next() (Node, bool) {
	n, ok := it.Peek()
	if !ok {
		return Node{}, false
	}
	j := it.cursor + 1
	for j < it.end && it.nodes[j].depth > it.depth {
		j++
	}
	it.cursor = j
	return n, true
}

// Peek returns the next child without advancing the iterator.
func (it *Iterator) Peek() (Node, bool) {
	if it.cursor >= it.end {
		return Node{}, false
	}
	return Node{nodes: it.nodes, i: it.cursor}, true
}

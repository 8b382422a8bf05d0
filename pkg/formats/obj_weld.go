package formats

import (
	"fmt"

	"github.com/Faultbox/korori/pkg/math"
)

// objChainNode is one extra attribute combination for a position.
// Nodes live in a flat pool and link through next (-1 ends a chain).
type objChainNode struct {
	texcoord math.Vec2
	normal   math.Vec3
	slot     uint32
	next     int32
}

// objWelder merges face corners that share position, texcoord and normal.
//
// The first corner seen for position i is its root and is stored at output
// slot i. Every later corner of position i with a different texcoord or
// normal is appended to the chain of i and gets a new slot past the roots.
// Positions declared after the first face have no reserved slot; their root
// takes the next free slot when first referenced.
type objWelder struct {
	limit     int
	rootCount int

	vertices []OBJVertex
	indices  []uint32

	roots []int32 // output slot of each position's root, -1 until referenced
	heads []int32 // first chain node of each position, -1 if none
	nodes []objChainNode

	duplicates int
}

func newOBJWelder(rootCount, limit int) (*objWelder, error) {
	if rootCount > limit {
		return nil, fmt.Errorf("%w: %d positions, limit %d", ErrOBJOutOfMemory, rootCount, limit)
	}

	w := &objWelder{
		limit:     limit,
		rootCount: rootCount,
		vertices:  make([]OBJVertex, rootCount),
		roots:     make([]int32, rootCount),
		heads:     make([]int32, rootCount),
	}
	for i := range w.roots {
		w.roots[i] = -1
		w.heads[i] = -1
	}
	return w, nil
}

// weld emits the output index for one face corner of position v.
func (w *objWelder) weld(v int, vert OBJVertex) error {
	if err := w.track(v); err != nil {
		return err
	}

	root := w.roots[v]
	if root < 0 {
		slot := v
		if v < w.rootCount {
			w.vertices[slot] = vert
		} else {
			var err error
			if slot, err = w.allocate(vert); err != nil {
				return err
			}
		}
		w.roots[v] = int32(slot)
		return w.emit(uint32(slot))
	}

	if sameAttributes(w.vertices[root], vert) {
		return w.emit(uint32(root))
	}

	last := int32(-1)
	for n := w.heads[v]; n >= 0; n = w.nodes[n].next {
		node := &w.nodes[n]
		if node.texcoord == vert.TexCoord && node.normal == vert.Normal {
			return w.emit(node.slot)
		}
		last = n
	}

	slot, err := w.allocate(vert)
	if err != nil {
		return err
	}

	w.nodes, err = appendGrow(w.nodes, objChainNode{
		texcoord: vert.TexCoord,
		normal:   vert.Normal,
		slot:     uint32(slot),
		next:     -1,
	}, w.limit)
	if err != nil {
		return err
	}

	node := int32(len(w.nodes) - 1)
	if last < 0 {
		w.heads[v] = node
	} else {
		w.nodes[last].next = node
	}
	w.duplicates++

	return w.emit(uint32(slot))
}

// track extends the root and chain tables to cover positions declared after the first face.
func (w *objWelder) track(v int) error {
	for len(w.roots) <= v {
		var err error
		if w.roots, err = appendGrow(w.roots, -1, w.limit); err != nil {
			return err
		}
		if w.heads, err = appendGrow(w.heads, -1, w.limit); err != nil {
			return err
		}
	}
	return nil
}

// allocate appends a vertex at the next free slot.
func (w *objWelder) allocate(vert OBJVertex) (int, error) {
	var err error
	w.vertices, err = appendGrow(w.vertices, vert, w.limit)
	if err != nil {
		return 0, err
	}
	return len(w.vertices) - 1, nil
}

func (w *objWelder) emit(idx uint32) error {
	var err error
	w.indices, err = appendGrow(w.indices, idx, w.limit)
	return err
}

// sameAttributes compares texcoord and normal with exact float equality.
func sameAttributes(a, b OBJVertex) bool {
	return a.TexCoord == b.TexCoord && a.Normal == b.Normal
}

// appendGrow appends v, growing capacity by 1.5x when s is full.
// Growing past limit fails with ErrOBJOutOfMemory.
func appendGrow[T any](s []T, v T, limit int) ([]T, error) {
	if len(s) == cap(s) {
		if len(s) >= limit {
			return s, fmt.Errorf("%w: %d elements", ErrOBJOutOfMemory, limit)
		}

		newCap := cap(s) + cap(s)/2
		if newCap < objMinCapacity {
			newCap = objMinCapacity
		}
		if newCap > limit {
			newCap = limit
		}

		grown := make([]T, len(s), newCap)
		copy(grown, s)
		s = grown
	}
	return append(s, v), nil
}

// shrinkSlice returns s reallocated to exactly len(s).
func shrinkSlice[T any](s []T) []T {
	if len(s) == cap(s) {
		return s
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

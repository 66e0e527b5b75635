// Package orb models the audio-reactive orb: a subdivided icosphere whose
// vertices are driven by a per-vertex mass-spring-damper system.
//
// [SphereVertices] builds the mesh; [Engine] advances it. Both are fully
// deterministic: the mesh is a pure function of its detail level, and two
// engines constructed with the same seed and fed the same ordered call
// sequence produce identical vertex trajectories. That property is what
// makes an offline export visually identical to the live session it
// replays.
package orb

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultDetail is the standard mesh detail level, yielding 2,562 vertices.
const DefaultDetail = 5

// SphereVertices builds the unit-sphere vertex set of an icosphere at the
// given detail level. Level 1 is the raw 12-vertex icosahedron; each
// further level splits every triangular face into four by inserting
// normalized edge midpoints. Level 5 yields exactly 2,562 vertices.
//
// Vertex order is stable across calls: seed vertices first, then midpoints
// in face-visit order, with shared edges deduplicated through a cache so a
// midpoint is emitted exactly once regardless of which adjacent face
// reaches it first.
func SphereVertices(detail int) []mgl64.Vec3 {
	if detail < 1 {
		detail = 1
	}

	vertices, faces := icosahedron()

	for level := 1; level < detail; level++ {
		// Cache of edge → midpoint index, keyed on the unordered endpoint
		// pair so both adjacent faces resolve to the same vertex.
		midpoints := make(map[[2]int]int, len(faces)*3/2)

		midpoint := func(a, b int) int {
			key := [2]int{min(a, b), max(a, b)}
			if idx, ok := midpoints[key]; ok {
				return idx
			}
			mid := vertices[a].Add(vertices[b]).Mul(0.5).Normalize()
			vertices = append(vertices, mid)
			idx := len(vertices) - 1
			midpoints[key] = idx
			return idx
		}

		next := make([][3]int, 0, len(faces)*4)
		for _, f := range faces {
			ab := midpoint(f[0], f[1])
			bc := midpoint(f[1], f[2])
			ca := midpoint(f[2], f[0])
			next = append(next,
				[3]int{f[0], ab, ca},
				[3]int{f[1], bc, ab},
				[3]int{f[2], ca, bc},
				[3]int{ab, bc, ca},
			)
		}
		faces = next
	}

	return vertices
}

// icosahedron returns the 12 golden-ratio vertices of a regular
// icosahedron, normalized to the unit sphere, and its 20 triangular faces.
func icosahedron() ([]mgl64.Vec3, [][3]int) {
	t := (1 + math.Sqrt(5)) / 2

	raw := []mgl64.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	vertices := make([]mgl64.Vec3, len(raw))
	for i, v := range raw {
		vertices[i] = v.Normalize()
	}

	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	return vertices, faces
}

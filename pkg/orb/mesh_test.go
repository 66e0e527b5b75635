package orb

import (
	"math"
	"testing"
)

func TestSphereVertices_Counts(t *testing.T) {
	t.Parallel()

	// 10·4^(d−1)+2 vertices at detail d.
	cases := []struct {
		detail int
		want   int
	}{
		{1, 12},
		{2, 42},
		{3, 162},
		{4, 642},
		{5, 2562},
	}
	for _, tc := range cases {
		if got := len(SphereVertices(tc.detail)); got != tc.want {
			t.Errorf("SphereVertices(%d) = %d vertices, want %d", tc.detail, got, tc.want)
		}
	}

	// Degenerate detail clamps to the raw icosahedron.
	if got := len(SphereVertices(0)); got != 12 {
		t.Errorf("SphereVertices(0) = %d vertices, want 12", got)
	}
}

func TestSphereVertices_UnitRadius(t *testing.T) {
	t.Parallel()

	for i, v := range SphereVertices(DefaultDetail) {
		if r := v.Len(); math.Abs(r-1) > 1e-12 {
			t.Fatalf("vertex %d has radius %v, want 1", i, r)
		}
	}
}

func TestSphereVertices_StableOrder(t *testing.T) {
	t.Parallel()

	a := SphereVertices(DefaultDetail)
	b := SphereVertices(DefaultDetail)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vertex %d differs between builds: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestSphereVertices_NoDuplicates(t *testing.T) {
	t.Parallel()

	verts := SphereVertices(4)
	seen := make(map[[3]float64]int, len(verts))
	for i, v := range verts {
		key := [3]float64{v.X(), v.Y(), v.Z()}
		if j, dup := seen[key]; dup {
			t.Fatalf("vertices %d and %d are identical: %v", j, i, v)
		}
		seen[key] = i
	}
}

package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Shape is a static collidable in world space.
type Shape interface {
	// IntersectRay returns the distance along dir (unit length) to the
	// nearest surface point, or false when the ray misses.
	IntersectRay(origin, dir mgl64.Vec3) (float64, bool)
	Bounds() AABB
}

type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// BoxAt builds an AABB from a center point and full extents.
func BoxAt(center, size mgl64.Vec3) AABB {
	half := size.Mul(0.5)
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

func (b AABB) Bounds() AABB {
	return b
}

func (b AABB) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// IntersectRay uses the slab method. An origin inside the box reports a
// hit at distance zero.
func (b AABB) IntersectRay(origin, dir mgl64.Vec3) (float64, bool) {
	tNear := math.Inf(-1)
	tFar := math.Inf(1)

	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < RayParallelTolerance {
			if origin[i] < b.Min[i] || origin[i] > b.Max[i] {
				return 0, false
			}
			continue
		}
		t1 := (b.Min[i] - origin[i]) / dir[i]
		t2 := (b.Max[i] - origin[i]) / dir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tNear {
			tNear = t1
		}
		if t2 < tFar {
			tFar = t2
		}
		if tNear > tFar {
			return 0, false
		}
	}

	if tFar < 0 {
		return 0, false
	}
	if tNear < 0 {
		return 0, true
	}
	return tNear, true
}

func (b AABB) union(o AABB) AABB {
	out := b
	for i := 0; i < 3; i++ {
		out.Min[i] = math.Min(out.Min[i], o.Min[i])
		out.Max[i] = math.Max(out.Max[i], o.Max[i])
	}
	return out
}

type Triangle struct {
	A mgl64.Vec3
	B mgl64.Vec3
	C mgl64.Vec3
}

// IntersectRay is double-sided Möller–Trumbore.
func (t Triangle) IntersectRay(origin, dir mgl64.Vec3) (float64, bool) {
	edge1 := t.B.Sub(t.A)
	edge2 := t.C.Sub(t.A)
	p := dir.Cross(edge2)
	det := edge1.Dot(p)
	if math.Abs(det) < RayParallelTolerance {
		return 0, false
	}
	inv := 1.0 / det

	s := origin.Sub(t.A)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(edge1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	dist := edge2.Dot(q) * inv
	if dist < 0 {
		return 0, false
	}
	return dist, true
}

func (t Triangle) Bounds() AABB {
	b := AABB{Min: t.A, Max: t.A}
	return b.union(AABB{Min: t.B, Max: t.B}).union(AABB{Min: t.C, Max: t.C})
}

// Mesh is a named triangle soup, tested against its bounds first.
type Mesh struct {
	Name      string
	Triangles []Triangle
	bounds    AABB
}

func NewMesh(name string, triangles []Triangle) *Mesh {
	m := &Mesh{Name: name, Triangles: triangles}
	for i, tri := range triangles {
		if i == 0 {
			m.bounds = tri.Bounds()
			continue
		}
		m.bounds = m.bounds.union(tri.Bounds())
	}
	return m
}

func (m *Mesh) Bounds() AABB {
	return m.bounds
}

func (m *Mesh) IntersectRay(origin, dir mgl64.Vec3) (float64, bool) {
	if m == nil || len(m.Triangles) == 0 {
		return 0, false
	}
	if _, ok := m.bounds.IntersectRay(origin, dir); !ok {
		return 0, false
	}

	best := math.Inf(1)
	hit := false
	for _, tri := range m.Triangles {
		if d, ok := tri.IntersectRay(origin, dir); ok && d < best {
			best = d
			hit = true
		}
	}
	return best, hit
}

package lod

import "github.com/go-gl/mathgl/mgl32"

// aabbInFrustum is a conservative box-plane test against up to six planes
// in Ax+By+Cz+D=0 form, normal pointing inward. For each plane it picks the
// AABB corner furthest along the plane normal's sign (the "most inside"
// corner) and rejects the box only if even that corner is outside; a box
// straddling a plane is therefore always kept. Fewer than six planes
// disables the test (assume visible).
func aabbInFrustum(min, max mgl32.Vec3, planes []mgl32.Vec4) bool {
	if len(planes) < 6 {
		return true
	}
	for i := 0; i < 6; i++ {
		p := planes[i]

		var x, y, z float32
		if p[0] > 0 {
			x = max[0]
		} else {
			x = min[0]
		}
		if p[1] > 0 {
			y = max[1]
		} else {
			y = min[1]
		}
		if p[2] > 0 {
			z = max[2]
		} else {
			z = min[2]
		}

		dist := p[0]*x + p[1]*y + p[2]*z + p[3]
		if dist < 0 {
			return false
		}
	}
	return true
}

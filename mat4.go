package volray

import "github.com/chewxy/math32"

// Mat4 represents a 4x4 transformation matrix in column-major order,
// matching the WGSL mat4x4<f32> memory layout: element (row r, column c)
// is stored at index c*4+r. Matrices pack into uniform buffers without
// reordering.
type Mat4 [16]float32

// Mat4Identity returns the identity matrix.
func Mat4Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float32 {
	return m[c*4+r]
}

// Mul returns the matrix product m * n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+r] * n[c*4+k]
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// MulVec4 transforms a 4-component vector (x, y, z, w) by the matrix and
// returns the transformed components.
func (m Mat4) MulVec4(x, y, z, w float32) (float32, float32, float32, float32) {
	return m[0]*x + m[4]*y + m[8]*z + m[12]*w,
		m[1]*x + m[5]*y + m[9]*z + m[13]*w,
		m[2]*x + m[6]*y + m[10]*z + m[14]*w,
		m[3]*x + m[7]*y + m[11]*z + m[15]*w
}

// TransformPoint transforms a point by the matrix, applying the
// perspective divide. Points at infinity (w' == 0) are returned undivided.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	x, y, z, w := m.MulVec4(p.X, p.Y, p.Z, 1)
	if w != 0 {
		inv := 1 / w
		return Vec3{X: x * inv, Y: y * inv, Z: z * inv}
	}
	return Vec3{X: x, Y: y, Z: z}
}

// LookAt returns a right-handed view matrix positioned at eye, looking
// toward center, with the given up vector. The view space looks down -Z.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)
	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

// Perspective returns a right-handed perspective projection with a [0, 1]
// clip-space depth range, the WebGPU convention. fovY is the vertical field
// of view in radians; near and far are positive clip distances.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	fy := 1 / math32.Tan(fovY/2)
	k := far / (near - far)
	return Mat4{
		fy / aspect, 0, 0, 0,
		0, fy, 0, 0,
		0, 0, k, -1,
		0, 0, near * far / (near - far), 0,
	}
}

// Inverse returns the inverse of the matrix computed by cofactor
// expansion, and reports whether the matrix was invertible. A singular
// matrix returns the identity and false.
func (m Mat4) Inverse() (Mat4, bool) {
	a00, a01, a02, a03 := m[0], m[1], m[2], m[3]
	a10, a11, a12, a13 := m[4], m[5], m[6], m[7]
	a20, a21, a22, a23 := m[8], m[9], m[10], m[11]
	a30, a31, a32, a33 := m[12], m[13], m[14], m[15]

	b00 := a00*a11 - a01*a10
	b01 := a00*a12 - a02*a10
	b02 := a00*a13 - a03*a10
	b03 := a01*a12 - a02*a11
	b04 := a01*a13 - a03*a11
	b05 := a02*a13 - a03*a12
	b06 := a20*a31 - a21*a30
	b07 := a20*a32 - a22*a30
	b08 := a20*a33 - a23*a30
	b09 := a21*a32 - a22*a31
	b10 := a21*a33 - a23*a31
	b11 := a22*a33 - a23*a32

	det := b00*b11 - b01*b10 + b02*b09 + b03*b08 - b04*b07 + b05*b06
	if det == 0 {
		return Mat4Identity(), false
	}
	inv := 1 / det

	return Mat4{
		(a11*b11 - a12*b10 + a13*b09) * inv,
		(a02*b10 - a01*b11 - a03*b09) * inv,
		(a31*b05 - a32*b04 + a33*b03) * inv,
		(a22*b04 - a21*b05 - a23*b03) * inv,
		(a12*b08 - a10*b11 - a13*b07) * inv,
		(a00*b11 - a02*b08 + a03*b07) * inv,
		(a32*b02 - a30*b05 - a33*b01) * inv,
		(a20*b05 - a22*b02 + a23*b01) * inv,
		(a10*b10 - a11*b08 + a13*b06) * inv,
		(a01*b08 - a00*b10 - a03*b06) * inv,
		(a30*b04 - a31*b02 + a33*b00) * inv,
		(a21*b02 - a20*b04 - a23*b00) * inv,
		(a11*b07 - a10*b09 - a12*b06) * inv,
		(a00*b09 - a01*b07 + a02*b06) * inv,
		(a31*b01 - a30*b03 - a32*b00) * inv,
		(a20*b03 - a21*b01 + a22*b00) * inv,
	}, true
}

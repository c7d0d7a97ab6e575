package common

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// ComposeTRS builds the local matrix T * R * S from glTF translation, rotation and scale.
// The rotation is a unit quaternion in glTF (x, y, z, w) order; it is normalized before use.
// The result is column-major, matching mgl32 and the WebGPU convention.
//
// Parameters:
//   - t: the translation
//   - r: the rotation quaternion (x, y, z, w)
//   - s: the scale
//
// Returns:
//   - mgl32.Mat4: the composed local matrix
func ComposeTRS(t [3]float32, r [4]float32, s [3]float32) mgl32.Mat4 {
	q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	if q.Len() > 0 {
		q = q.Normalize()
	} else {
		q = mgl32.QuatIdent()
	}
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(q.Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// DecomposeTRS splits a column-major affine matrix into translation, rotation and scale.
// Shear is discarded. A negative determinant is folded into the X scale.
//
// Parameters:
//   - m: the matrix to decompose
//
// Returns:
//   - [3]float32: the translation
//   - [4]float32: the rotation quaternion (x, y, z, w)
//   - [3]float32: the scale
func DecomposeTRS(m mgl32.Mat4) ([3]float32, [4]float32, [3]float32) {
	t := [3]float32{m[12], m[13], m[14]}

	c0, c1, c2 := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
	s := [3]float32{c0.Len(), c1.Len(), c2.Len()}
	if c0.Cross(c1).Dot(c2) < 0 {
		s[0] = -s[0]
	}

	inv := func(v float32) float32 {
		if v > -1e-4 && v < 1e-4 {
			return 1
		}
		return 1 / v
	}
	rot := mgl32.Mat3FromCols(c0.Mul(inv(s[0])), c1.Mul(inv(s[1])), c2.Mul(inv(s[2])))
	q := mgl32.Mat4ToQuat(rot.Mat4()).Normalize()

	return t, [4]float32{q.V[0], q.V[1], q.V[2], q.W}, s
}

// IsIdentity reports whether a column-major 4x4 matrix is exactly the identity.
//
// Parameters:
//   - m: the matrix to test
//
// Returns:
//   - bool: true when m equals the identity matrix
func IsIdentity(m [16]float32) bool {
	return mgl32.Mat4(m) == mgl32.Ident4()
}

// UnormByte maps an unsigned 8-bit component to [0, 1].
func UnormByte(v uint8) float32 { return float32(v) / 255.0 }

// UnormShort maps an unsigned 16-bit component to [0, 1].
func UnormShort(v uint16) float32 { return float32(v) / 65535.0 }

// SnormByte maps a signed 8-bit component to [-1, 1] using max(c / 127, -1).
func SnormByte(v int8) float32 { return max(float32(v)/127.0, -1) }

// SnormShort maps a signed 16-bit component to [-1, 1] using max(c / 32767, -1).
func SnormShort(v int16) float32 { return max(float32(v)/32767.0, -1) }

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

package loader

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"sort"

	"github.com/Carmen-Shannon/oxy-gltf/common"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// zeroFillAllowance is the element count an accessor without a buffer view may always declare.
const zeroFillAllowance = 1 << 16

// accessorView is a non-owning, lazily decoded view over the elements of one accessor.
// Elements are decoded on access; nothing is copied up front. Sparse substitutions are
// overlaid at read time.
type accessorView struct {
	accessorType  gltf.AccessorType
	componentType gltf.ComponentType
	normalized    bool
	count         int
	arity         int
	compSize      int
	elemSize      int
	stride        int

	// base starts at the accessor's first element; nil reads as zeros.
	base []byte

	// sparseIndices is strictly increasing; sparseValues is tightly packed, one element per index.
	sparseIndices []uint32
	sparseValues  []byte
}

// Len returns the element count.
func (v *accessorView) Len() int { return v.count }

// Arity returns the number of components per element.
func (v *accessorView) Arity() int { return v.arity }

// element returns the raw bytes of element i after applying sparse substitution.
func (v *accessorView) element(i int) []byte {
	if n := len(v.sparseIndices); n > 0 {
		j := sort.Search(n, func(k int) bool { return v.sparseIndices[k] >= uint32(i) })
		if j < n && v.sparseIndices[j] == uint32(i) {
			off := j * v.elemSize
			return v.sparseValues[off : off+v.elemSize]
		}
	}
	if v.base == nil {
		return nil
	}
	off := i * v.stride
	return v.base[off : off+v.elemSize]
}

// Float32 decodes element i into dst, which must hold Arity values.
// Normalized integers map to [0, 1] or [-1, 1]; other integers convert by value.
//
// Parameters:
//   - i: the element index
//   - dst: receives the components
func (v *accessorView) Float32(i int, dst []float32) {
	raw := v.element(i)
	for c := 0; c < v.arity; c++ {
		if raw == nil {
			dst[c] = 0
			continue
		}
		dst[c] = decodeFloat(raw[c*v.compSize:], v.componentType, v.normalized)
	}
}

// Uint32 decodes element i into dst as unsigned integers.
//
// Parameters:
//   - i: the element index
//   - dst: receives the components
func (v *accessorView) Uint32(i int, dst []uint32) {
	raw := v.element(i)
	for c := 0; c < v.arity; c++ {
		if raw == nil {
			dst[c] = 0
			continue
		}
		dst[c] = decodeUint(raw[c*v.compSize:], v.componentType)
	}
}

// Floats iterates every element as float components. The yielded slice is reused between iterations.
func (v *accessorView) Floats() iter.Seq2[int, []float32] {
	return func(yield func(int, []float32) bool) {
		buf := make([]float32, v.arity)
		for i := 0; i < v.count; i++ {
			v.Float32(i, buf)
			if !yield(i, buf) {
				return
			}
		}
	}
}

// gltfAccessorReaderImpl is the implementation of the gltfAccessorReader interface.
type gltfAccessorReaderImpl struct {
	doc     *gltf.Document
	buffers [][]byte
}

// gltfAccessorReader defines typed reads of accessor data over resolved buffers.
type gltfAccessorReader interface {
	// View builds a bounds-checked view over an accessor.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - *accessorView: the view
	//   - error: ErrIndexOutOfRange, ErrAccessorBounds or ErrUnsupportedAccessor
	View(index uint32) (*accessorView, error)

	// ReadVec2 reads a VEC2 accessor.
	ReadVec2(index uint32) ([][2]float32, error)

	// ReadVec3 reads a VEC3 accessor.
	ReadVec3(index uint32) ([][3]float32, error)

	// ReadVec4 reads a VEC4 accessor.
	ReadVec4(index uint32) ([][4]float32, error)

	// ReadColor reads a VEC3 or VEC4 color accessor, expanding RGB to RGBA with alpha 1.
	ReadColor(index uint32) ([][4]float32, error)

	// ReadIndices reads a SCALAR unsigned byte, short or int accessor.
	ReadIndices(index uint32) ([]uint32, error)

	// ReadJoints reads a VEC4 unsigned byte or short accessor.
	ReadJoints(index uint32) ([][4]uint32, error)

	// ReadMat4 reads a MAT4 float accessor as column-major matrices.
	ReadMat4(index uint32) ([]mgl32.Mat4, error)
}

var _ gltfAccessorReader = &gltfAccessorReaderImpl{}

// newGLTFAccessorReader creates a reader over resolved buffers.
//
// Parameters:
//   - doc: the parsed document
//   - buffers: the resolved buffer bytes, indexed like doc.Buffers
//
// Returns:
//   - gltfAccessorReader: the reader
func newGLTFAccessorReader(doc *gltf.Document, buffers [][]byte) gltfAccessorReader {
	return &gltfAccessorReaderImpl{doc: doc, buffers: buffers}
}

func (r *gltfAccessorReaderImpl) View(index uint32) (*accessorView, error) {
	ref := fmt.Sprintf("accessors[%d]", index)
	if int(index) >= len(r.doc.Accessors) {
		return nil, newError("build", ref, ErrIndexOutOfRange, "%d accessors", len(r.doc.Accessors))
	}
	acc := r.doc.Accessors[index]

	compSize := componentSize(acc.ComponentType)
	arity := accessorArity(acc.Type)
	if compSize == 0 || arity == 0 {
		return nil, newError("build", ref, ErrUnsupportedAccessor, "componentType %v type %v", acc.ComponentType, acc.Type)
	}
	if arity >= 4 && acc.Type != gltf.AccessorVec4 && compSize < 4 {
		// Matrix columns of 1- or 2-byte components carry alignment padding.
		return nil, newError("build", ref, ErrUnsupportedAccessor, "matrix of %d-byte components", compSize)
	}

	v := &accessorView{
		accessorType:  acc.Type,
		componentType: acc.ComponentType,
		normalized:    acc.Normalized,
		count:         int(acc.Count),
		arity:         arity,
		compSize:      compSize,
		elemSize:      compSize * arity,
	}
	v.stride = v.elemSize

	if acc.BufferView != nil {
		view, err := bufferViewBytes(r.doc, r.buffers, *acc.BufferView)
		if err != nil {
			return nil, wrapError("build", ref, err)
		}
		if s := int(r.doc.BufferViews[*acc.BufferView].ByteStride); s > 0 {
			if s < v.elemSize {
				return nil, newError("build", ref, ErrUnsupportedAccessor, "byteStride %d is smaller than element size %d", s, v.elemSize)
			}
			v.stride = s
		}
		offset := int64(acc.ByteOffset)
		if v.count > 0 {
			end := offset + int64(v.count-1)*int64(v.stride) + int64(v.elemSize)
			if end > int64(len(view)) {
				return nil, newError("build", ref, ErrAccessorBounds,
					"offset %d + %d elements of stride %d needs %d bytes, buffer view has %d", offset, v.count, v.stride, end, len(view))
			}
		} else if offset > int64(len(view)) {
			return nil, newError("build", ref, ErrAccessorBounds, "offset %d beyond buffer view of %d bytes", offset, len(view))
		}
		v.base = view[offset:]
	} else if limit := r.zeroFillLimit(acc); v.count > limit {
		return nil, newError("build", ref, ErrAccessorBounds,
			"%d zero-filled elements exceed the limit of %d for %d resolved buffer bytes", v.count, limit, r.resolvedBytes())
	}

	if acc.Sparse != nil && acc.Sparse.Count > 0 {
		if err := r.bindSparse(ref, acc, v); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// zeroFillLimit bounds the element count of an accessor without a buffer view.
// Such an accessor holds no data of its own, so a count far beyond the resolved bytes is rejected
// before the collectors allocate for it.
func (r *gltfAccessorReaderImpl) zeroFillLimit(acc *gltf.Accessor) int {
	limit := r.resolvedBytes() + zeroFillAllowance
	if acc.Sparse != nil {
		limit += int(acc.Sparse.Count)
	}
	return limit
}

// resolvedBytes returns the total size of the resolved buffers.
func (r *gltfAccessorReaderImpl) resolvedBytes() int {
	total := 0
	for _, b := range r.buffers {
		total += len(b)
	}
	return total
}

// bindSparse reads and checks the sparse substitution tables of an accessor.
func (r *gltfAccessorReaderImpl) bindSparse(ref string, acc *gltf.Accessor, v *accessorView) error {
	s := acc.Sparse
	n := int(s.Count)

	idxSize := componentSize(s.Indices.ComponentType)
	switch s.Indices.ComponentType {
	case gltf.ComponentUbyte, gltf.ComponentUshort, gltf.ComponentUint:
	default:
		return newError("build", ref+".sparse.indices", ErrUnsupportedAccessor, "componentType %v", s.Indices.ComponentType)
	}

	idxView, err := bufferViewBytes(r.doc, r.buffers, s.Indices.BufferView)
	if err != nil {
		return wrapError("build", ref+".sparse.indices", err)
	}
	idxStart := int64(s.Indices.ByteOffset)
	if idxStart+int64(n)*int64(idxSize) > int64(len(idxView)) {
		return newError("build", ref+".sparse.indices", ErrAccessorBounds, "%d indices at offset %d exceed buffer view of %d bytes", n, idxStart, len(idxView))
	}

	valView, err := bufferViewBytes(r.doc, r.buffers, s.Values.BufferView)
	if err != nil {
		return wrapError("build", ref+".sparse.values", err)
	}
	valStart := int64(s.Values.ByteOffset)
	valEnd := valStart + int64(n)*int64(v.elemSize)
	if valEnd > int64(len(valView)) {
		return newError("build", ref+".sparse.values", ErrAccessorBounds, "%d values at offset %d exceed buffer view of %d bytes", n, valStart, len(valView))
	}

	indices := make([]uint32, n)
	raw := idxView[idxStart:]
	for i := range indices {
		indices[i] = decodeUint(raw[i*idxSize:], s.Indices.ComponentType)
		if indices[i] >= uint32(v.count) {
			return newError("build", ref+".sparse.indices", ErrAccessorBounds, "index %d for %d elements", indices[i], v.count)
		}
		if i > 0 && indices[i] <= indices[i-1] {
			return newError("build", ref+".sparse.indices", ErrAccessorBounds, "indices not strictly increasing at %d", i)
		}
	}

	v.sparseIndices = indices
	v.sparseValues = valView[valStart:valEnd]
	return nil
}

func (r *gltfAccessorReaderImpl) ReadVec2(index uint32) ([][2]float32, error) {
	v, err := r.typedView(index, gltf.AccessorVec2)
	if err != nil {
		return nil, err
	}
	out := make([][2]float32, v.Len())
	for i := range out {
		v.Float32(i, out[i][:])
	}
	return out, nil
}

func (r *gltfAccessorReaderImpl) ReadVec3(index uint32) ([][3]float32, error) {
	v, err := r.typedView(index, gltf.AccessorVec3)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, v.Len())
	for i := range out {
		v.Float32(i, out[i][:])
	}
	return out, nil
}

func (r *gltfAccessorReaderImpl) ReadVec4(index uint32) ([][4]float32, error) {
	v, err := r.typedView(index, gltf.AccessorVec4)
	if err != nil {
		return nil, err
	}
	out := make([][4]float32, v.Len())
	for i := range out {
		v.Float32(i, out[i][:])
	}
	return out, nil
}

func (r *gltfAccessorReaderImpl) ReadColor(index uint32) ([][4]float32, error) {
	v, err := r.typedView(index, gltf.AccessorVec3, gltf.AccessorVec4)
	if err != nil {
		return nil, err
	}
	out := make([][4]float32, v.Len())
	for i := range out {
		out[i][3] = 1
		v.Float32(i, out[i][:v.arity])
	}
	return out, nil
}

func (r *gltfAccessorReaderImpl) ReadIndices(index uint32) ([]uint32, error) {
	v, err := r.typedView(index, gltf.AccessorScalar)
	if err != nil {
		return nil, err
	}
	switch v.componentType {
	case gltf.ComponentUbyte, gltf.ComponentUshort, gltf.ComponentUint:
	default:
		return nil, newError("build", fmt.Sprintf("accessors[%d]", index), ErrUnsupportedAccessor, "index componentType %v", v.componentType)
	}
	out := make([]uint32, v.Len())
	for i := range out {
		v.Uint32(i, out[i:i+1])
	}
	return out, nil
}

func (r *gltfAccessorReaderImpl) ReadJoints(index uint32) ([][4]uint32, error) {
	v, err := r.typedView(index, gltf.AccessorVec4)
	if err != nil {
		return nil, err
	}
	switch v.componentType {
	case gltf.ComponentUbyte, gltf.ComponentUshort:
	default:
		return nil, newError("build", fmt.Sprintf("accessors[%d]", index), ErrUnsupportedAccessor, "joints componentType %v", v.componentType)
	}
	out := make([][4]uint32, v.Len())
	for i := range out {
		v.Uint32(i, out[i][:])
	}
	return out, nil
}

func (r *gltfAccessorReaderImpl) ReadMat4(index uint32) ([]mgl32.Mat4, error) {
	v, err := r.typedView(index, gltf.AccessorMat4)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Mat4, v.Len())
	for i := range out {
		v.Float32(i, out[i][:])
	}
	return out, nil
}

// typedView builds a view and checks its element type.
func (r *gltfAccessorReaderImpl) typedView(index uint32, want ...gltf.AccessorType) (*accessorView, error) {
	v, err := r.View(index)
	if err != nil {
		return nil, err
	}
	for _, t := range want {
		if v.accessorType == t {
			return v, nil
		}
	}
	return nil, newError("build", fmt.Sprintf("accessors[%d]", index), ErrUnsupportedAccessor, "type %v, want %v", v.accessorType, want)
}

// --- Helper Functions ---

// bufferViewBytes returns the bytes of a buffer view, bounded by the buffer's declared length.
// The slice aliases the resolved buffer.
func bufferViewBytes(doc *gltf.Document, buffers [][]byte, index uint32) ([]byte, error) {
	ref := fmt.Sprintf("bufferViews[%d]", index)
	if int(index) >= len(doc.BufferViews) {
		return nil, newError("build", ref, ErrIndexOutOfRange, "%d buffer views", len(doc.BufferViews))
	}
	bv := doc.BufferViews[index]
	if int(bv.Buffer) >= len(buffers) {
		return nil, newError("build", ref, ErrIndexOutOfRange, "buffer %d of %d", bv.Buffer, len(buffers))
	}
	buf := buffers[bv.Buffer]
	limit := min(len(buf), int(doc.Buffers[bv.Buffer].ByteLength))
	end := int64(bv.ByteOffset) + int64(bv.ByteLength)
	if end > int64(limit) {
		return nil, newError("build", ref, ErrAccessorBounds,
			"offset %d + length %d exceeds buffer %d of %d bytes", bv.ByteOffset, bv.ByteLength, bv.Buffer, limit)
	}
	return buf[bv.ByteOffset:end:end], nil
}

// componentSize returns the byte size of a component type, or 0 if unknown.
func componentSize(t gltf.ComponentType) int {
	switch t {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	case gltf.ComponentUint, gltf.ComponentFloat:
		return 4
	default:
		return 0
	}
}

// accessorArity returns the number of components for an accessor type, or 0 if unknown.
func accessorArity(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	default:
		return 0
	}
}

// decodeFloat decodes one little-endian component as a float.
func decodeFloat(b []byte, t gltf.ComponentType, normalized bool) float32 {
	switch t {
	case gltf.ComponentFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltf.ComponentByte:
		if normalized {
			return common.SnormByte(int8(b[0]))
		}
		return float32(int8(b[0]))
	case gltf.ComponentUbyte:
		if normalized {
			return common.UnormByte(b[0])
		}
		return float32(b[0])
	case gltf.ComponentShort:
		v := int16(binary.LittleEndian.Uint16(b))
		if normalized {
			return common.SnormShort(v)
		}
		return float32(v)
	case gltf.ComponentUshort:
		v := binary.LittleEndian.Uint16(b)
		if normalized {
			return common.UnormShort(v)
		}
		return float32(v)
	case gltf.ComponentUint:
		return float32(binary.LittleEndian.Uint32(b))
	default:
		return 0
	}
}

// decodeUint decodes one little-endian component as an unsigned integer.
func decodeUint(b []byte, t gltf.ComponentType) uint32 {
	switch t {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return uint32(b[0])
	case gltf.ComponentShort, gltf.ComponentUshort:
		return uint32(binary.LittleEndian.Uint16(b))
	case gltf.ComponentUint:
		return binary.LittleEndian.Uint32(b)
	case gltf.ComponentFloat:
		return uint32(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	default:
		return 0
	}
}

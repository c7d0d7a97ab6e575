package loader

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/qmuntal/gltf"
)

// GLB container constants.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
const (
	glbMagic      = 0x46546C67 // "glTF"
	glbVersion    = 2
	glbHeaderSize = 12
	glbChunkJSON  = 0x4E4F534A // "JSON"
	glbChunkBIN   = 0x004E4942 // "BIN\0"
)

// glbHeader is the 12-byte GLB file header.
type glbHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

// glbChunkHeader precedes every GLB chunk.
type glbChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

// nodeTransformKeys records which transform properties a node spelled out in the JSON.
// Decoded documents fill defaults, so presence has to be read from the raw text.
type nodeTransformKeys struct {
	matrix, translation, rotation, scale bool
}

func (k nodeTransformKeys) hasTRS() bool {
	return k.translation || k.rotation || k.scale
}

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	document      *gltf.Document
	binChunk      []byte
	isGLB         bool
	transformKeys []nodeTransformKeys
}

// gltfParser defines the interface for decoding a .gltf or .glb container into a document.
// It performs no I/O beyond reading the supplied bytes; external resources are the resolver's job.
type gltfParser interface {
	// Parse detects the container format and decodes it.
	//
	// Parameters:
	//   - data: the complete .gltf or .glb bytes
	//
	// Returns:
	//   - error: a Structural *Error if the container or JSON is malformed
	Parse(data []byte) error

	// ParseReader reads r to the end and parses it.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//
	// Returns:
	//   - error: error if reading or parsing fails
	ParseReader(r io.Reader) error

	// Document returns the parsed document, or nil before a successful Parse.
	//
	// Returns:
	//   - *gltf.Document: the document
	Document() *gltf.Document

	// BinaryChunk returns the GLB BIN chunk, or nil when there is none.
	//
	// Returns:
	//   - []byte: the chunk payload
	BinaryChunk() []byte

	// IsGLB reports whether the container was binary.
	//
	// Returns:
	//   - bool: true for .glb input
	IsGLB() bool

	// TransformKeys reports which transform properties node i declared.
	//
	// Parameters:
	//   - i: the node index
	//
	// Returns:
	//   - nodeTransformKeys: the declared keys, all false when i is out of range
	TransformKeys(i int) nodeTransformKeys
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
//
// Returns:
//   - gltfParser: a new parser instance
func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltf.Document {
	return p.document
}

func (p *gltfParserImpl) BinaryChunk() []byte {
	return p.binChunk
}

func (p *gltfParserImpl) IsGLB() bool {
	return p.isGLB
}

func (p *gltfParserImpl) TransformKeys(i int) nodeTransformKeys {
	if i < 0 || i >= len(p.transformKeys) {
		return nodeTransformKeys{}
	}
	return p.transformKeys[i]
}

func (p *gltfParserImpl) ParseReader(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return newError("parse", "", ErrMalformedContainer, "failed to read data: %v", err)
	}
	return p.Parse(data)
}

func (p *gltfParserImpl) Parse(data []byte) error {
	switch {
	case isGLB(data):
		return p.parseGLB(data)
	case isJSONDocument(data):
		return p.parseJSON(data)
	default:
		return newError("parse", "", ErrMalformedContainer, "neither GLB magic nor a JSON object")
	}
}

// parseGLB validates the header and every chunk boundary before decoding the JSON chunk.
// A length field that points past the data is rejected rather than read partially.
func (p *gltfParserImpl) parseGLB(data []byte) error {
	if len(data) < glbHeaderSize {
		return newError("parse", "glb header", ErrMalformedContainer, "file too small: %d bytes", len(data))
	}

	r := bytes.NewReader(data)

	var header glbHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return newError("parse", "glb header", ErrMalformedContainer, "failed to read header: %v", err)
	}
	if header.Magic != glbMagic {
		return newError("parse", "glb header", ErrMalformedContainer, "invalid magic 0x%08x", header.Magic)
	}
	if header.Version != glbVersion {
		return newError("parse", "glb header", ErrUnsupportedVersion, "GLB version %d", header.Version)
	}
	if int64(header.Length) > int64(len(data)) {
		return newError("parse", "glb header", ErrMalformedContainer, "declared length %d exceeds data length %d", header.Length, len(data))
	}
	if header.Length < glbHeaderSize {
		return newError("parse", "glb header", ErrMalformedContainer, "declared length %d is smaller than the header", header.Length)
	}

	// Only the declared length belongs to the container.
	r = bytes.NewReader(data[glbHeaderSize:header.Length])

	var jsonData []byte
	for chunk := 0; r.Len() > 0; chunk++ {
		ref := fmt.Sprintf("glb chunk %d", chunk)

		var chunkHeader glbChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunkHeader); err != nil {
			return newError("parse", ref, ErrMalformedContainer, "truncated chunk header")
		}
		if int64(chunkHeader.ChunkLength) > int64(r.Len()) {
			return newError("parse", ref, ErrMalformedContainer, "chunk length %d exceeds remaining %d bytes", chunkHeader.ChunkLength, r.Len())
		}

		chunkData := make([]byte, chunkHeader.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return newError("parse", ref, ErrMalformedContainer, "failed to read chunk data: %v", err)
		}

		switch {
		case chunk == 0:
			if chunkHeader.ChunkType != glbChunkJSON {
				return newError("parse", ref, ErrMalformedContainer, "first chunk must be JSON, got 0x%08x", chunkHeader.ChunkType)
			}
			jsonData = chunkData
		case chunk == 1 && chunkHeader.ChunkType == glbChunkBIN:
			p.binChunk = chunkData
		case chunkHeader.ChunkType == glbChunkJSON || chunkHeader.ChunkType == glbChunkBIN:
			return newError("parse", ref, ErrMalformedContainer, "unexpected chunk type 0x%08x", chunkHeader.ChunkType)
		default:
			// Unknown chunk types are reserved for extensions and skipped.
		}
	}

	if jsonData == nil {
		return newError("parse", "glb", ErrMalformedContainer, "missing JSON chunk")
	}

	p.isGLB = true
	return p.parseJSON(jsonData)
}

// parseJSON decodes the document and checks the asset version.
func (p *gltfParserImpl) parseJSON(data []byte) error {
	data = bytes.TrimPrefix(data, utf8BOM)

	var doc gltf.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return newError("parse", "json", ErrMalformedContainer, "%v", err)
	}

	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return newError("parse", "asset.version", ErrUnsupportedVersion, "%q", doc.Asset.Version)
	}

	var raw struct {
		Nodes []map[string]json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return newError("parse", "json", ErrMalformedContainer, "%v", err)
	}
	p.transformKeys = make([]nodeTransformKeys, len(raw.Nodes))
	for i, n := range raw.Nodes {
		_, m := n["matrix"]
		_, t := n["translation"]
		_, r := n["rotation"]
		_, s := n["scale"]
		p.transformKeys[i] = nodeTransformKeys{matrix: m, translation: t, rotation: r, scale: s}
	}

	p.document = &doc
	return nil
}

// --- Helper Functions ---

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// isGLB reports whether data starts with the GLB magic.
func isGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == glbMagic
}

// isJSONDocument reports whether the first significant byte, after an optional BOM, opens a JSON object.
func isJSONDocument(data []byte) bool {
	data = bytes.TrimLeft(bytes.TrimPrefix(data, utf8BOM), " \t\r\n")
	return len(data) > 0 && data[0] == '{'
}

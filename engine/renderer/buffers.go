package renderer

import (
	"encoding/binary"
	"unsafe"

	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

const (
	VerticesPerQuad      uint32 = 4
	IndicesPerQuad       uint32 = 6
	DefaultQuadsPerBatch uint32 = 1000
	// Bounded by the number of texture units the pipelines guarantee.
	MaxTextureSlots uint32 = 16
)

// GenerateQuadIndices returns maxIndices indices describing two triangles
// per quad, {o, o+1, o+2, o+2, o+3, o} with o advancing by 4. Corners are
// TL, TR, BR, BL so both triangles share the TL-BR diagonal.
func GenerateQuadIndices(maxIndices uint32) []uint32 {
	indices := make([]uint32, maxIndices)
	var offset uint32
	for i := uint32(0); i+IndicesPerQuad <= maxIndices; i += IndicesPerQuad {
		indices[i+0] = offset + 0
		indices[i+1] = offset + 1
		indices[i+2] = offset + 2

		indices[i+3] = offset + 2
		indices[i+4] = offset + 3
		indices[i+5] = offset + 0

		offset += VerticesPerQuad
	}
	return indices
}

// indexBytes encodes indices as little-endian uint32, the layout every
// backend expects for its index buffer.
func indexBytes(indices []uint32) []byte {
	out := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}

// vertexBytes views the vertices as raw bytes without copying.
func vertexBytes(vertices []metadata.QuadVertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(metadata.QuadVertexSize))
}

package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
	"github.com/spaghettifunk/anima2d/engine/renderer/software"
)

const testSize = 64

func newTestBackend(t *testing.T) *software.Backend {
	t.Helper()
	backend := software.New()
	err := backend.Initialize(&metadata.RendererBackendConfig{
		ApplicationName: "renderer test",
		Width:           testSize,
		Height:          testSize,
		VertexLayout:    metadata.QuadVertexLayout(),
		MaxTextureSlots: MaxTextureSlots,
	})
	if err != nil {
		t.Fatalf("failed to initialize software backend: %v", err)
	}
	return backend
}

func newTestShader(t *testing.T, backend RendererBackend) *metadata.Shader {
	t.Helper()
	shader := &metadata.Shader{
		Name:                  metadata.BUILTIN_SHADER_NAME_QUAD2D,
		ViewProjectionUniform: metadata.DEFAULT_VIEW_PROJECTION_NAME,
		SamplersUniform:       metadata.DEFAULT_SAMPLERS_UNIFORM_NAME,
	}
	if err := backend.ShaderCreate(shader); err != nil {
		t.Fatalf("failed to create shader: %v", err)
	}
	return shader
}

func newTestRenderer(t *testing.T, config *Renderer2DConfig) (*Renderer2D, *software.Backend) {
	t.Helper()
	backend := newTestBackend(t)
	r, err := NewRenderer2D(backend, newTestShader(t, backend), config)
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}
	t.Cleanup(func() { r.Shutdown() })
	return r, backend
}

func newTestTexture(t *testing.T, backend RendererBackend, name string) *metadata.Texture {
	t.Helper()
	texture := &metadata.Texture{
		Name:         name,
		Width:        2,
		Height:       2,
		ChannelCount: 4,
	}
	if err := backend.TextureCreate(metadata.CheckerboardPixels(2, 1, 255, 0, 0), texture); err != nil {
		t.Fatalf("failed to create texture %s: %v", name, err)
	}
	return texture
}

func screenProjection() math.Mat4 {
	return math.NewMat4Orthographic(0, testSize, testSize, 0, -1.0, 1.0)
}

func mustBegin(t *testing.T, r *Renderer2D) {
	t.Helper()
	if err := r.BeginFrame(screenProjection()); err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
}

func mustEnd(t *testing.T, r *Renderer2D) {
	t.Helper()
	if err := r.EndFrame(); err != nil {
		t.Fatalf("EndFrame failed: %v", err)
	}
}

func white() math.Vec4 {
	return math.NewVec4One()
}

func TestThreeUntexturedQuadsMakeOneDraw(t *testing.T) {
	r, backend := newTestRenderer(t, nil)

	mustBegin(t, r)
	for i := 0; i < 3; i++ {
		if err := r.DrawQuad(math.NewVec3(float32(i)*10, 0, 0), math.NewVec2(5, 5), white()); err != nil {
			t.Fatalf("DrawQuad failed: %v", err)
		}
	}
	mustEnd(t, r)

	draws := backend.Draws()
	if len(draws) != 1 {
		t.Fatalf("expected 1 draw, got %d", len(draws))
	}
	if draws[0].IndexCount != 18 {
		t.Errorf("expected 18 indices, got %d", draws[0].IndexCount)
	}
	if expected := uint64(12 * metadata.QuadVertexSize); draws[0].UploadedBytes != expected {
		t.Errorf("expected %d uploaded bytes, got %d", expected, draws[0].UploadedBytes)
	}
	if len(draws[0].Textures) != 1 || draws[0].Textures[0] != r.WhiteTexture() {
		t.Errorf("expected only the white texture bound, got %v", draws[0].Textures)
	}
	for i, v := range draws[0].Vertices {
		if v.TexIndex != 0 {
			t.Errorf("vertex %d: expected tex index 0, got %f", i, v.TexIndex)
		}
	}

	stats := r.Stats()
	if stats.DrawCalls != 1 || stats.QuadCount != 3 {
		t.Errorf("expected 1 draw call and 3 quads, got %+v", stats)
	}
	if stats.VertexCount() != 12 || stats.IndexCount() != 18 {
		t.Errorf("expected 12 vertices and 18 indices, got %d and %d", stats.VertexCount(), stats.IndexCount())
	}
}

func TestQuadCapacityOverflowSplitsDraws(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	backend.Rasterize = false

	mustBegin(t, r)
	for i := 0; i < 1500; i++ {
		if err := r.DrawQuad(math.NewVec3Zero(), math.NewVec2One(), white()); err != nil {
			t.Fatalf("DrawQuad %d failed: %v", i, err)
		}
	}
	mustEnd(t, r)

	draws := backend.Draws()
	if len(draws) != 2 {
		t.Fatalf("expected 2 draws, got %d", len(draws))
	}
	if draws[0].IndexCount != 6000 || draws[1].IndexCount != 3000 {
		t.Errorf("expected 6000 and 3000 indices, got %d and %d", draws[0].IndexCount, draws[1].IndexCount)
	}
	if r.Stats().DrawCalls != 2 || r.Stats().QuadCount != 1500 {
		t.Errorf("expected 2 draw calls and 1500 quads, got %+v", r.Stats())
	}
}

func TestBatchBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		quads   int
		indices []uint32
	}{
		{"exactly one batch", 1000, []uint32{6000}},
		{"one quad past a batch", 1001, []uint32{6000, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, backend := newTestRenderer(t, nil)
			backend.Rasterize = false
			tex := newTestTexture(t, backend, "shared")

			mustBegin(t, r)
			for i := 0; i < tt.quads; i++ {
				// X records the submission order.
				if err := r.DrawTexturedQuad(math.NewVec3(float32(i), 0, 0), math.NewVec2One(), tex, 1, white()); err != nil {
					t.Fatalf("DrawTexturedQuad %d failed: %v", i, err)
				}
			}
			mustEnd(t, r)

			draws := backend.Draws()
			if len(draws) != len(tt.indices) {
				t.Fatalf("expected %d draws, got %d", len(tt.indices), len(draws))
			}
			for i, expected := range tt.indices {
				if draws[i].IndexCount != expected {
					t.Errorf("draw %d: expected %d indices, got %d", i, expected, draws[i].IndexCount)
				}
			}
			if stats := r.Stats(); stats.DrawCalls != uint32(len(tt.indices)) || stats.QuadCount != uint32(tt.quads) {
				t.Errorf("expected %d draw calls and %d quads, got %+v", len(tt.indices), tt.quads, stats)
			}
			if len(draws) < 2 {
				return
			}
			last := draws[1]
			if expected := uint64(4 * metadata.QuadVertexSize); last.UploadedBytes != expected {
				t.Errorf("expected %d uploaded bytes, got %d", expected, last.UploadedBytes)
			}
			if last.Vertices[0].Position.X != 1000 {
				t.Errorf("expected the last quad at x 1000, got %f", last.Vertices[0].Position.X)
			}
		})
	}
}

// Slot 0 is white, so a batch holds at most 15 distinct user textures.
func TestSeventeenDistinctTexturesMakeTwoDraws(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	backend.Rasterize = false

	textures := make([]*metadata.Texture, 17)
	for i := range textures {
		textures[i] = newTestTexture(t, backend, fmt.Sprintf("distinct-%d", i))
	}

	mustBegin(t, r)
	for i, tex := range textures {
		if err := r.DrawTexturedQuad(math.NewVec3Zero(), math.NewVec2One(), tex, 1, white()); err != nil {
			t.Fatalf("DrawTexturedQuad %d failed: %v", i, err)
		}
	}
	if r.TextureCount() != 3 {
		t.Errorf("expected white plus 2 textures in the open batch, got %d", r.TextureCount())
	}
	mustEnd(t, r)

	draws := backend.Draws()
	if len(draws) != 2 {
		t.Fatalf("expected 2 draws, got %d", len(draws))
	}
	if draws[0].IndexCount != 15*6 || draws[1].IndexCount != 2*6 {
		t.Errorf("expected 90 and 12 indices, got %d and %d", draws[0].IndexCount, draws[1].IndexCount)
	}
	if len(draws[0].Textures) != int(MaxTextureSlots) {
		t.Errorf("expected %d textures bound in the first draw, got %d", MaxTextureSlots, len(draws[0].Textures))
	}
	second := draws[1].Textures
	if len(second) != 3 || second[0] != r.WhiteTexture() || second[1] != textures[15] || second[2] != textures[16] {
		t.Errorf("expected white, distinct-15 and distinct-16 in the second draw, got %v", second)
	}
}

func TestUnitQuadUnderIdentity(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	backend.Rasterize = false

	if err := r.BeginFrame(math.NewMat4Identity()); err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	if err := r.DrawQuad(math.NewVec3Zero(), math.NewVec2One(), white()); err != nil {
		t.Fatalf("DrawQuad failed: %v", err)
	}
	mustEnd(t, r)

	draws := backend.Draws()
	if len(draws) != 1 {
		t.Fatalf("expected 1 draw, got %d", len(draws))
	}
	expected := []math.Vec3{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	if len(draws[0].Vertices) != len(expected) {
		t.Fatalf("expected %d vertices, got %d", len(expected), len(draws[0].Vertices))
	}
	for i, v := range draws[0].Vertices {
		if v.Position != expected[i] {
			t.Errorf("vertex %d: expected %v, got %v", i, expected[i], v.Position)
		}
		if v.TexIndex != 0 {
			t.Errorf("vertex %d: expected tex index 0, got %f", i, v.TexIndex)
		}
	}
	if stats := r.Stats(); stats.DrawCalls != 1 || stats.QuadCount != 1 {
		t.Errorf("expected 1 draw call and 1 quad, got %+v", stats)
	}
}

func TestZeroTilingFactorMeansOne(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	backend.Rasterize = false

	mustBegin(t, r)
	for _, q := range []*metadata.Quad{
		{Size: math.NewVec2One(), Color: white()},
		{Size: math.NewVec2One(), Color: white(), TilingFactor: 3},
	} {
		if err := r.SubmitQuad(q); err != nil {
			t.Fatalf("SubmitQuad failed: %v", err)
		}
	}
	mustEnd(t, r)

	vertices := backend.Draws()[0].Vertices
	if vertices[0].TilingFactor != 1 {
		t.Errorf("expected tiling 1 for an unset factor, got %f", vertices[0].TilingFactor)
	}
	if vertices[4].TilingFactor != 3 {
		t.Errorf("expected tiling 3, got %f", vertices[4].TilingFactor)
	}
}

func TestTextureSlotOverflowSplitsDraws(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	backend.Rasterize = false

	textures := make([]*metadata.Texture, 20)
	for i := range textures {
		textures[i] = newTestTexture(t, backend, fmt.Sprintf("texture-%d", i))
	}

	mustBegin(t, r)
	for i, tex := range textures {
		if err := r.DrawTexturedQuad(math.NewVec3Zero(), math.NewVec2One(), tex, 1, white()); err != nil {
			t.Fatalf("DrawTexturedQuad %d failed: %v", i, err)
		}
		// Slot 0 is white, so the 16th distinct texture starts a new batch.
		if i == 15 && r.TextureCount() != 2 {
			t.Errorf("expected 2 textures after overflow, got %d", r.TextureCount())
		}
	}
	mustEnd(t, r)

	draws := backend.Draws()
	if len(draws) != 2 {
		t.Fatalf("expected 2 draws, got %d", len(draws))
	}
	if draws[0].IndexCount != 15*6 || draws[1].IndexCount != 5*6 {
		t.Errorf("expected 90 and 30 indices, got %d and %d", draws[0].IndexCount, draws[1].IndexCount)
	}
	if len(draws[0].Textures) != 16 {
		t.Errorf("expected 16 textures bound in the first draw, got %d", len(draws[0].Textures))
	}
	second := draws[1].Textures
	if len(second) != 6 || second[0] != r.WhiteTexture() || second[1] != textures[15] {
		t.Errorf("expected white followed by texture-15 in the second draw, got %v", second)
	}
	for i, v := range draws[1].Vertices {
		if expected := float32(i/4 + 1); v.TexIndex != expected {
			t.Errorf("vertex %d: expected tex index %f, got %f", i, expected, v.TexIndex)
		}
	}
}

func TestRepeatedTextureIsDeduplicated(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	backend.Rasterize = false
	tex := newTestTexture(t, backend, "shared")

	mustBegin(t, r)
	for i := 0; i < 100; i++ {
		if err := r.DrawTexturedQuad(math.NewVec3Zero(), math.NewVec2One(), tex, 1, white()); err != nil {
			t.Fatalf("DrawTexturedQuad failed: %v", err)
		}
	}
	if r.TextureCount() != 2 {
		t.Errorf("expected 2 textures in the batch, got %d", r.TextureCount())
	}
	mustEnd(t, r)

	draws := backend.Draws()
	if len(draws) != 1 {
		t.Fatalf("expected 1 draw, got %d", len(draws))
	}
	for i, v := range draws[0].Vertices {
		if v.TexIndex != 1 {
			t.Fatalf("vertex %d: expected tex index 1, got %f", i, v.TexIndex)
		}
	}
}

func TestRotatedQuadCornersAreExact(t *testing.T) {
	r, backend := newTestRenderer(t, nil)

	mustBegin(t, r)
	if err := r.DrawRotatedQuad(math.NewVec3(10, 10, 0), math.NewVec2(2, 2), 90, white()); err != nil {
		t.Fatalf("DrawRotatedQuad failed: %v", err)
	}
	mustEnd(t, r)

	expected := []math.Vec3{
		{X: 10, Y: 10, Z: 0},
		{X: 10, Y: 12, Z: 0},
		{X: 8, Y: 12, Z: 0},
		{X: 8, Y: 10, Z: 0},
	}
	vertices := backend.Draws()[0].Vertices
	for i, want := range expected {
		if vertices[i].Position != want {
			t.Errorf("corner %d: expected %v, got %v", i, want, vertices[i].Position)
		}
	}
}

func TestVertexAttributesFollowTheQuad(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	tex := newTestTexture(t, backend, "sheet")
	sub := metadata.NewSubTexture(tex, math.NewVec2(0.25, 0.5), math.NewVec2(0.5, 1))
	tint := math.NewVec4(0.5, 0.25, 1, 0.75)

	mustBegin(t, r)
	if err := r.DrawSubTexture(math.NewVec3(1, 2, 0.5), math.NewVec2(4, 8), sub, tint); err != nil {
		t.Fatalf("DrawSubTexture failed: %v", err)
	}
	mustEnd(t, r)

	vertices := backend.Draws()[0].Vertices
	if len(vertices) != 4 {
		t.Fatalf("expected 4 vertices, got %d", len(vertices))
	}
	positions := []math.Vec3{{X: 1, Y: 2, Z: 0.5}, {X: 5, Y: 2, Z: 0.5}, {X: 5, Y: 10, Z: 0.5}, {X: 1, Y: 10, Z: 0.5}}
	for i, v := range vertices {
		if v.Position != positions[i] {
			t.Errorf("vertex %d: expected position %v, got %v", i, positions[i], v.Position)
		}
		if v.TexCoord != sub.TexCoords[i] {
			t.Errorf("vertex %d: expected uv %v, got %v", i, sub.TexCoords[i], v.TexCoord)
		}
		if v.Color != tint {
			t.Errorf("vertex %d: expected colour %v, got %v", i, tint, v.Color)
		}
		if v.TexIndex != 1 || v.TilingFactor != 1 {
			t.Errorf("vertex %d: expected slot 1 and tiling 1, got %f and %f", i, v.TexIndex, v.TilingFactor)
		}
	}
}

func TestEmptyFrameIssuesNoDraw(t *testing.T) {
	r, backend := newTestRenderer(t, nil)

	mustBegin(t, r)
	if r.State() != BatchStateEmpty {
		t.Errorf("expected empty batch, got %s", r.State())
	}
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	mustEnd(t, r)

	if len(backend.Draws()) != 0 {
		t.Errorf("expected no draws, got %d", len(backend.Draws()))
	}
	if r.Stats().DrawCalls != 0 {
		t.Errorf("expected 0 draw calls, got %d", r.Stats().DrawCalls)
	}
}

func TestStatisticsResetEveryFrame(t *testing.T) {
	r, _ := newTestRenderer(t, nil)

	mustBegin(t, r)
	for i := 0; i < 5; i++ {
		r.DrawQuad(math.NewVec3Zero(), math.NewVec2One(), white())
	}
	mustEnd(t, r)
	if r.Stats().QuadCount != 5 {
		t.Fatalf("expected 5 quads, got %d", r.Stats().QuadCount)
	}

	mustBegin(t, r)
	if r.Stats().QuadCount != 0 || r.Stats().DrawCalls != 0 {
		t.Errorf("expected zeroed statistics, got %+v", r.Stats())
	}
	r.DrawQuad(math.NewVec3Zero(), math.NewVec2One(), white())
	mustEnd(t, r)
	if r.Stats().QuadCount != 1 || r.Stats().DrawCalls != 1 {
		t.Errorf("expected 1 quad and 1 draw call, got %+v", r.Stats())
	}
}

func TestIndexBufferIsNeverRewritten(t *testing.T) {
	r, backend := newTestRenderer(t, &Renderer2DConfig{QuadsPerBatch: 4, MaxTextureSlots: 4})
	backend.Rasterize = false

	before := backend.BufferBytes(r.indexBuffer)
	for frame := 0; frame < 3; frame++ {
		mustBegin(t, r)
		for i := 0; i < 10; i++ {
			tex := newTestTexture(t, backend, fmt.Sprintf("t-%d-%d", frame, i))
			r.DrawTexturedQuad(math.NewVec3Zero(), math.NewVec2One(), tex, 2, white())
		}
		mustEnd(t, r)
	}
	if !bytes.Equal(before, backend.BufferBytes(r.indexBuffer)) {
		t.Error("expected index buffer content to be unchanged")
	}
	if loads := backend.BufferLoads(r.indexBuffer); loads != 1 {
		t.Errorf("expected 1 index upload, got %d", loads)
	}
}

func TestBatchStateTransitions(t *testing.T) {
	r, _ := newTestRenderer(t, &Renderer2DConfig{QuadsPerBatch: 2, MaxTextureSlots: 16})

	mustBegin(t, r)
	states := []BatchState{r.State()}
	for i := 0; i < 3; i++ {
		r.DrawQuad(math.NewVec3Zero(), math.NewVec2One(), white())
		states = append(states, r.State())
	}
	mustEnd(t, r)

	expected := []BatchState{BatchStateEmpty, BatchStateAccumulating, BatchStateFull, BatchStateAccumulating}
	for i := range expected {
		if states[i] != expected[i] {
			t.Errorf("step %d: expected %s, got %s", i, expected[i], states[i])
		}
	}
	if r.Stats().DrawCalls != 2 {
		t.Errorf("expected 2 draw calls, got %d", r.Stats().DrawCalls)
	}
}

func TestSetViewProjectionFlushesFirst(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	world := screenProjection()
	ui := math.NewMat4Orthographic(0, 32, 32, 0, -1, 1)

	mustBegin(t, r)
	r.DrawQuad(math.NewVec3Zero(), math.NewVec2One(), white())
	r.DrawQuad(math.NewVec3Zero(), math.NewVec2One(), white())
	if err := r.SetViewProjection(ui); err != nil {
		t.Fatalf("SetViewProjection failed: %v", err)
	}
	r.DrawQuad(math.NewVec3Zero(), math.NewVec2One(), white())
	mustEnd(t, r)

	draws := backend.Draws()
	if len(draws) != 2 {
		t.Fatalf("expected 2 draws, got %d", len(draws))
	}
	if draws[0].IndexCount != 12 || draws[0].ViewProjection != world {
		t.Errorf("expected the first draw to hold 2 quads in world space")
	}
	if draws[1].IndexCount != 6 || draws[1].ViewProjection != ui {
		t.Errorf("expected the second draw to hold 1 quad in ui space")
	}
}

func TestMisuseIsRejected(t *testing.T) {
	r, _ := newTestRenderer(t, nil)

	if err := r.SubmitQuad(metadata.NewQuad(math.NewVec3Zero(), math.NewVec2One())); !errors.Is(err, ErrNotInFrame) {
		t.Errorf("expected ErrNotInFrame, got %v", err)
	}
	if err := r.EndFrame(); !errors.Is(err, ErrNotInFrame) {
		t.Errorf("expected ErrNotInFrame from EndFrame, got %v", err)
	}
	if err := r.Flush(); !errors.Is(err, ErrNotInFrame) {
		t.Errorf("expected ErrNotInFrame from Flush, got %v", err)
	}

	mustBegin(t, r)
	if err := r.BeginFrame(screenProjection()); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("expected ErrFrameInProgress, got %v", err)
	}
	if err := r.SubmitQuad(nil); !errors.Is(err, ErrNilQuad) {
		t.Errorf("expected ErrNilQuad, got %v", err)
	}
	mustEnd(t, r)
	if r.Stats().QuadCount != 0 {
		t.Errorf("expected rejected quads not to be counted, got %d", r.Stats().QuadCount)
	}
}

type reentrantBackend struct {
	*software.Backend
	renderer *Renderer2D
	err      error
}

func (b *reentrantBackend) DrawIndexed(vertexBuffer, indexBuffer *metadata.RenderBuffer, indexCount uint32) error {
	b.err = b.renderer.SubmitQuad(metadata.NewQuad(math.NewVec3Zero(), math.NewVec2One()))
	return b.Backend.DrawIndexed(vertexBuffer, indexBuffer, indexCount)
}

func TestSubmitDuringFlushIsRejected(t *testing.T) {
	backend := &reentrantBackend{Backend: newTestBackend(t)}
	r, err := NewRenderer2D(backend, newTestShader(t, backend), nil)
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}
	backend.renderer = r

	mustBegin(t, r)
	r.DrawQuad(math.NewVec3Zero(), math.NewVec2One(), white())
	mustEnd(t, r)

	if !errors.Is(backend.err, ErrReentrantSubmit) {
		t.Errorf("expected ErrReentrantSubmit, got %v", backend.err)
	}
	if r.Stats().QuadCount != 1 {
		t.Errorf("expected 1 quad, got %d", r.Stats().QuadCount)
	}
}

type failingBackend struct {
	*software.Backend
	failType  metadata.RenderBufferType
	destroyed int
}

func (b *failingBackend) RenderBufferCreate(bufferType metadata.RenderBufferType, totalSize uint64) (*metadata.RenderBuffer, error) {
	if bufferType == b.failType {
		return nil, errors.New("out of memory")
	}
	return b.Backend.RenderBufferCreate(bufferType, totalSize)
}

func (b *failingBackend) RenderBufferDestroy(buffer *metadata.RenderBuffer) error {
	b.destroyed++
	return b.Backend.RenderBufferDestroy(buffer)
}

func (b *failingBackend) TextureDestroy(texture *metadata.Texture) error {
	b.destroyed++
	return b.Backend.TextureDestroy(texture)
}

func TestConstructionFailureReleasesResources(t *testing.T) {
	backend := &failingBackend{Backend: newTestBackend(t), failType: metadata.RENDERBUFFER_TYPE_INDEX}
	_, err := NewRenderer2D(backend, newTestShader(t, backend), nil)
	if err == nil {
		t.Fatal("expected construction to fail")
	}
	// The white texture and the vertex buffer.
	if backend.destroyed != 2 {
		t.Errorf("expected 2 resources destroyed, got %d", backend.destroyed)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config Renderer2DConfig
		err    error
	}{
		{"defaults", *DefaultRenderer2DConfig(), nil},
		{"zero batch", Renderer2DConfig{QuadsPerBatch: 0, MaxTextureSlots: 16}, ErrInvalidBatchSize},
		{"one slot", Renderer2DConfig{QuadsPerBatch: 10, MaxTextureSlots: 1}, ErrInvalidTextureSlots},
		{"too many slots", Renderer2DConfig{QuadsPerBatch: 10, MaxTextureSlots: 17}, ErrInvalidTextureSlots},
		{"two slots", Renderer2DConfig{QuadsPerBatch: 1, MaxTextureSlots: 2}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestResizeKeepsBatchCapacity(t *testing.T) {
	r, backend := newTestRenderer(t, nil)

	if err := r.OnResize(128, 32); err != nil {
		t.Fatalf("OnResize failed: %v", err)
	}
	if r.QuadsPerBatch() != DefaultQuadsPerBatch {
		t.Errorf("expected %d quads per batch, got %d", DefaultQuadsPerBatch, r.QuadsPerBatch())
	}
	if bounds := backend.Snapshot().Bounds(); bounds.Dx() != 128 || bounds.Dy() != 32 {
		t.Errorf("expected a 128x32 framebuffer, got %v", bounds)
	}
}

func TestRasterizedOutput(t *testing.T) {
	config := DefaultRenderer2DConfig()
	config.ClearColour = math.NewVec4(0, 0, 0, 1)
	r, backend := newTestRenderer(t, config)
	tex := newTestTexture(t, backend, "checker")

	mustBegin(t, r)
	r.DrawQuad(math.NewVec3(0, 0, 0), math.NewVec2(32, 32), math.NewVec4(0, 1, 0, 1))
	r.DrawTexturedQuad(math.NewVec3(32, 32, 0), math.NewVec2(32, 32), tex, 1, white())
	mustEnd(t, r)

	img := backend.Snapshot()
	tests := []struct {
		x, y       int
		r, g, b, a uint8
	}{
		{10, 10, 0, 255, 0, 255},
		{40, 10, 0, 0, 0, 255},
		// Checkerboard: the first cell carries the colour, the next one is white.
		{36, 36, 255, 0, 0, 255},
		{60, 36, 255, 255, 255, 255},
		{60, 60, 255, 0, 0, 255},
	}
	for _, tt := range tests {
		c := img.RGBAAt(tt.x, tt.y)
		if c.R != tt.r || c.G != tt.g || c.B != tt.b || c.A != tt.a {
			t.Errorf("pixel (%d,%d): expected (%d,%d,%d,%d), got %v", tt.x, tt.y, tt.r, tt.g, tt.b, tt.a, c)
		}
	}
}

func TestGenerateQuadIndices(t *testing.T) {
	indices := GenerateQuadIndices(12)
	expected := []uint32{0, 1, 2, 2, 3, 0, 4, 5, 6, 6, 7, 4}
	for i := range expected {
		if indices[i] != expected[i] {
			t.Errorf("index %d: expected %d, got %d", i, expected[i], indices[i])
		}
	}
}

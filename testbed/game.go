package testbed

import (
	"fmt"
	stdmath "math"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima2d/engine"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

const (
	gridColumns  = 60
	gridRows     = 40
	gridCellSize = 18
	// More textures than a batch has slots, so batches break on textures too.
	spinnerCount = 24
	panSpeed     = 400.0
	spinSpeed    = 45.0
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	textures []*metadata.Texture
	sheet    *metadata.Texture
	sprites  []*metadata.SubTexture
	keys     map[core.KeyCode]bool
	// spritesID is uuid.Nil while the sprites overlay is hidden.
	spritesID uuid.UUID
	rotation  float32
	elapsed   float64
	width     uint32
	height    uint32
}

func NewTestGame(config *engine.ApplicationConfig) (*TestGame, error) {
	if config == nil {
		config = engine.DefaultApplicationConfig()
		config.Name = "Anima2D Testbed"
	}
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			Layers:            engine.NewLayerStack(),
			State: &gameState{
				keys: make(map[core.KeyCode]bool),
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogInfo("initializing testbed...")
	state := g.state()
	ts := g.SystemManager.TextureSystem()

	for i := 0; i < spinnerCount; i++ {
		r, gr, b := hue(float64(i) / spinnerCount)
		pixels := metadata.CheckerboardPixels(32, 4, r, gr, b)
		texture, err := ts.CreateFromPixels(fmt.Sprintf("testbed-spinner-%d", i), 32, 32, 4, pixels)
		if err != nil {
			return err
		}
		state.textures = append(state.textures, texture)
	}

	// A 4x1 sprite sheet of 16 pixel cells.
	sheetPixels := make([]uint8, 64*16*4)
	for x := 0; x < 64; x++ {
		r, gr, b := hue(float64(x/16) / 4)
		for y := 0; y < 16; y++ {
			i := (y*64 + x) * 4
			sheetPixels[i], sheetPixels[i+1], sheetPixels[i+2], sheetPixels[i+3] = r, gr, b, 255
		}
	}
	sheet, err := ts.CreateFromPixels("testbed-sheet", 64, 16, 4, sheetPixels)
	if err != nil {
		return err
	}
	state.sheet = sheet
	for cell := 0; cell < 4; cell++ {
		state.sprites = append(state.sprites, metadata.NewSubTextureFromCoords(sheet,
			math.NewVec2(float32(cell), 0), math.NewVec2(16, 16), math.NewVec2One()))
	}

	if err := g.Layers.PushLayer(&engine.Layer{
		Name:    "camera-controller",
		OnEvent: g.onKey,
	}); err != nil {
		return err
	}
	return g.showSprites()
}

func (g *TestGame) showSprites() error {
	layer := &engine.Layer{
		Name:     "sprites",
		OnRender: g.renderSprites,
	}
	if err := g.Layers.PushOverlay(layer); err != nil {
		return err
	}
	g.state().spritesID = layer.ID
	return nil
}

func (g *TestGame) toggleSprites() error {
	state := g.state()
	if state.spritesID == uuid.Nil {
		return g.showSprites()
	}
	if err := g.Layers.PopID(state.spritesID); err != nil {
		return err
	}
	state.spritesID = uuid.Nil
	return nil
}

func (g *TestGame) onKey(code core.SystemEventCode, data interface{}) bool {
	ke, ok := data.(*core.KeyEvent)
	if !ok {
		return false
	}
	switch ke.KeyCode {
	case core.KEY_LEFT, core.KEY_RIGHT, core.KEY_UP, core.KEY_DOWN, core.KEY_A, core.KEY_D, core.KEY_W, core.KEY_S:
		g.state().keys[ke.KeyCode] = code == core.EVENT_CODE_KEY_PRESSED
		return true
	case core.KEY_F2:
		if code == core.EVENT_CODE_KEY_PRESSED {
			if err := g.toggleSprites(); err != nil {
				core.LogError("testbed: %s", err)
			}
		}
		return true
	case core.KEY_PLUS, core.KEY_MINUS:
		if code != core.EVENT_CODE_KEY_PRESSED {
			return true
		}
		camera := g.SystemManager.CameraSystem().GetDefault()
		if ke.KeyCode == core.KEY_PLUS {
			camera.ZoomBy(0.1)
		} else {
			camera.ZoomBy(-0.1)
		}
		return true
	}
	return false
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	state.elapsed += deltaTime
	state.rotation = float32(stdmath.Mod(float64(state.rotation)+spinSpeed*deltaTime, 360))

	camera := g.SystemManager.CameraSystem().GetDefault()
	amount := float32(panSpeed * deltaTime)
	if state.keys[core.KEY_LEFT] || state.keys[core.KEY_A] {
		camera.MoveLeft(amount)
	}
	if state.keys[core.KEY_RIGHT] || state.keys[core.KEY_D] {
		camera.MoveRight(amount)
	}
	if state.keys[core.KEY_UP] || state.keys[core.KEY_W] {
		camera.MoveUp(amount)
	}
	if state.keys[core.KEY_DOWN] || state.keys[core.KEY_S] {
		camera.MoveDown(amount)
	}
	return nil
}

func (g *TestGame) Render(r *renderer.Renderer2D, deltaTime float64) error {
	state := g.state()

	// 2400 flat quads, more than two full batches at the default size.
	for row := 0; row < gridRows; row++ {
		for col := 0; col < gridColumns; col++ {
			colour := math.NewVec4(float32(col)/gridColumns, float32(row)/gridRows, 0.6, 1.0)
			position := math.NewVec3(float32(col*gridCellSize), float32(row*gridCellSize), -0.1)
			if err := r.DrawQuad(position, math.NewVec2(gridCellSize-2, gridCellSize-2), colour); err != nil {
				return err
			}
		}
	}

	for i, texture := range state.textures {
		angle := float64(i) / float64(len(state.textures)) * 2 * stdmath.Pi
		radius := 220.0
		position := math.NewVec3(
			float32(float64(state.width)/2+stdmath.Cos(angle+state.elapsed*0.3)*radius),
			float32(float64(state.height)/2+stdmath.Sin(angle+state.elapsed*0.3)*radius),
			0,
		)
		if err := r.DrawRotatedTexturedQuad(position, math.NewVec2(48, 48), state.rotation+float32(i*15), texture, 1.0, math.NewVec4One()); err != nil {
			return err
		}
	}

	tint := math.NewVec4(1, 1, 1, 0.5)
	return r.DrawTexturedQuad(math.NewVec3(20, 20, 0.1), math.NewVec2(128, 128), state.textures[0], 4.0, tint)
}

func (g *TestGame) renderSprites(r *renderer.Renderer2D) error {
	state := g.state()
	for i, sprite := range state.sprites {
		position := math.NewVec3(float32(state.width)-float32(4-i)*40, float32(state.height)-60, 0.2)
		if err := r.DrawSubTexture(position, math.NewVec2(32, 32), sprite, math.NewVec4One()); err != nil {
			return err
		}
	}
	if fonts := g.ApplicationConfig.Fonts; len(fonts) > 0 {
		fs := g.SystemManager.FontSystem()
		font, err := fs.Get(fonts[0])
		if err != nil {
			return nil
		}
		return fs.DrawText(r, font, "Anima2D batch renderer", math.NewVec3(20, float32(state.height)-40, 0.3), 1.0, math.NewVec4One())
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.state()
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down testbed...")
	state := g.state()
	ts := g.SystemManager.TextureSystem()
	for _, texture := range state.textures {
		ts.Release(texture.Name)
	}
	if state.sheet != nil {
		ts.Release(state.sheet.Name)
	}
	return nil
}

func hue(h float64) (uint8, uint8, uint8) {
	channel := func(offset float64) uint8 {
		v := stdmath.Abs(stdmath.Mod(h*6+offset, 6)-3) - 1
		return uint8(stdmath.Max(0, stdmath.Min(1, v)) * 255)
	}
	return channel(0), channel(4), channel(2)
}

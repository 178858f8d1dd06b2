package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima2d/engine/assets"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

var (
	ErrFontNotFound = errors.New("font not found")
	ErrFontNoPages  = errors.New("font has no page textures")
)

// unknownCodepoint is the glyph id AngelCode tools use for missing characters.
const unknownCodepoint rune = -1

type BitmapFontLookup struct {
	Data *metadata.FontData
	// Names of the page textures owned by the texture system.
	pageNames []string
}

type FontSystemConfig struct {
	MaxBitmapFontCount uint8
	/** @brief Fonts, by .fnt name under fonts/, loaded by Initialize. */
	DefaultBitmapFonts []string
}

type FontSystem struct {
	Config           *FontSystemConfig
	BitmapFontLookup map[string]*BitmapFontLookup
	// subsystems
	textureSystem *TextureSystem
	assetManager  *assets.AssetManager
}

func NewFontSystem(config *FontSystemConfig, ts *TextureSystem, am *assets.AssetManager) (*FontSystem, error) {
	if config == nil || config.MaxBitmapFontCount == 0 {
		err := fmt.Errorf("NewFontSystem - config.MaxBitmapFontCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &FontSystem{
		Config:           config,
		BitmapFontLookup: make(map[string]*BitmapFontLookup),
		textureSystem:    ts,
		assetManager:     am,
	}, nil
}

func (fs *FontSystem) Initialize() error {
	for _, name := range fs.Config.DefaultBitmapFonts {
		if _, err := fs.LoadBitmapFont(name); err != nil {
			core.LogError("failed to load bitmap font: %s", name)
			return err
		}
	}
	return nil
}

func (fs *FontSystem) Shutdown() error {
	for name := range fs.BitmapFontLookup {
		fs.Release(name)
	}
	return nil
}

/**
 * @brief Loads fonts/<name>.fnt and acquires its page textures. Loading a
 * font twice returns the existing one.
 */
func (fs *FontSystem) LoadBitmapFont(name string) (*metadata.FontData, error) {
	if lookup, ok := fs.BitmapFontLookup[name]; ok {
		core.LogWarn("a font named '%s' already exists and will not be loaded again", name)
		return lookup.Data, nil
	}
	if len(fs.BitmapFontLookup) >= int(fs.Config.MaxBitmapFontCount) {
		return nil, fmt.Errorf("no space left to allocate a new bitmap font. Increase maximum number allowed in font system config")
	}
	if fs.assetManager == nil || fs.textureSystem == nil {
		return nil, fmt.Errorf("font %s: %w", name, core.ErrSystemNotReady)
	}

	res, err := fs.assetManager.LoadAsset(name, metadata.ResourceTypeBitmapFont, nil)
	if err != nil {
		core.LogError("failed to load bitmap font %s: %s", name, err)
		return nil, err
	}
	resourceData, ok := res.Data.(*metadata.BitmapFontResourceData)
	if !ok {
		return nil, fmt.Errorf("font %s: unexpected resource data %T", name, res.Data)
	}
	if len(resourceData.Pages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFontNoPages, name)
	}

	lookup := &BitmapFontLookup{Data: resourceData.Data}
	for _, page := range resourceData.Pages {
		texture, err := fs.textureSystem.AcquirePath(page.File, true)
		if err != nil {
			for _, n := range lookup.pageNames {
				fs.textureSystem.Release(n)
			}
			return nil, fmt.Errorf("font %s page %d: %w", name, page.ID, err)
		}
		lookup.Data.Pages = append(lookup.Data.Pages, texture)
		lookup.pageNames = append(lookup.pageNames, texture.Name)
	}

	fs.BitmapFontLookup[name] = lookup
	core.LogDebug("bitmap font %s loaded: %s %d, %d glyphs, %d pages", name, lookup.Data.Face, lookup.Data.Size, len(lookup.Data.Glyphs), len(lookup.Data.Pages))
	return lookup.Data, nil
}

/**
 * @brief Registers font data built elsewhere, with page textures already
 * created. The font system does not own those textures.
 */
func (fs *FontSystem) RegisterFont(name string, font *metadata.FontData) error {
	if font == nil || len(font.Pages) == 0 {
		return fmt.Errorf("%w: %s", ErrFontNoPages, name)
	}
	if _, ok := fs.BitmapFontLookup[name]; ok {
		return fmt.Errorf("a font named '%s' already exists", name)
	}
	fs.BitmapFontLookup[name] = &BitmapFontLookup{Data: font}
	return nil
}

func (fs *FontSystem) Get(name string) (*metadata.FontData, error) {
	lookup, ok := fs.BitmapFontLookup[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFontNotFound, name)
	}
	return lookup.Data, nil
}

func (fs *FontSystem) Release(name string) {
	lookup, ok := fs.BitmapFontLookup[name]
	if !ok {
		return
	}
	for _, n := range lookup.pageNames {
		fs.textureSystem.Release(n)
	}
	delete(fs.BitmapFontLookup, name)
}

func glyphFor(font *metadata.FontData, codepoint rune) *metadata.FontGlyph {
	if g, ok := font.Glyphs[codepoint]; ok {
		return g
	}
	if g, ok := font.Glyphs[unknownCodepoint]; ok {
		return g
	}
	return font.Glyphs['?']
}

func kerning(font *metadata.FontData, runes []rune, i int) float32 {
	if i+1 >= len(runes) {
		return 0
	}
	return float32(font.Kernings[[2]rune{runes[i], runes[i+1]}])
}

/**
 * @brief Emits one textured quad per visible glyph of text. The position
 * is the top left corner of the first line; y grows downwards.
 */
func (fs *FontSystem) DrawText(r *renderer.Renderer2D, font *metadata.FontData, text string, position math.Vec3, scale float32, colour math.Vec4) error {
	if font == nil || len(font.Pages) == 0 {
		return ErrFontNoPages
	}
	if scale <= 0 {
		scale = 1
	}
	atlasW := float32(font.AtlasSizeX)
	atlasH := float32(font.AtlasSizeY)

	runes := []rune(text)
	x, y := float32(0), float32(0)
	for i, c := range runes {
		switch c {
		case '\n':
			x = 0
			y += float32(font.LineHeight)
			continue
		case '\t':
			x += font.TabXAdvance
			continue
		}

		g := glyphFor(font, c)
		if g == nil {
			core.LogWarn("unable to find glyph for codepoint %d, skipping", c)
			continue
		}
		if g.Width > 0 && g.Height > 0 && int(g.PageID) < len(font.Pages) {
			page := font.Pages[g.PageID]
			w, h := atlasW, atlasH
			if w == 0 || h == 0 {
				w, h = float32(page.Width), float32(page.Height)
			}
			sub := metadata.NewSubTexture(page,
				math.NewVec2(float32(g.X)/w, float32(g.Y)/h),
				math.NewVec2(float32(g.X+g.Width)/w, float32(g.Y+g.Height)/h),
			)
			quadPosition := math.NewVec3(
				position.X+(x+float32(g.XOffset))*scale,
				position.Y+(y+float32(g.YOffset))*scale,
				position.Z,
			)
			size := math.NewVec2(float32(g.Width)*scale, float32(g.Height)*scale)
			if err := r.DrawSubTexture(quadPosition, size, sub, colour); err != nil {
				return err
			}
		}
		x += float32(g.XAdvance) + kerning(font, runes, i)
	}
	return nil
}

/**
 * @brief Returns the width of the widest line and the total height of text.
 */
func (fs *FontSystem) MeasureText(font *metadata.FontData, text string, scale float32) math.Vec2 {
	if font == nil || text == "" {
		return math.NewVec2Zero()
	}
	if scale <= 0 {
		scale = 1
	}
	runes := []rune(text)
	lines := 1
	x, width := float32(0), float32(0)
	for i, c := range runes {
		switch c {
		case '\n':
			x = 0
			lines++
			continue
		case '\t':
			x += font.TabXAdvance
		default:
			if g := glyphFor(font, c); g != nil {
				x += float32(g.XAdvance) + kerning(font, runes, i)
			}
		}
		width = max(width, x)
	}
	return math.NewVec2(width*scale, float32(lines)*float32(font.LineHeight)*scale)
}

package loaders

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fzipp/bmfont"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

// BitmapFontLoader imports AngelCode .fnt descriptors. Page images are not
// loaded here; their paths are returned for the texture system.
type BitmapFontLoader struct{}

func (fl *BitmapFontLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	resourceData, err := fl.importFNTFile(path)
	if err != nil {
		return nil, err
	}

	return &metadata.Resource{
		ResourceType: metadata.ResourceTypeBitmapFont,
		Name:         resourceData.Data.Face,
		FullPath:     path,
		DataSize:     uint64(len(resourceData.Data.Glyphs)),
		Data:         resourceData,
	}, nil
}

func (fl *BitmapFontLoader) Unload(resource *metadata.Resource) error {
	if resource.Data != nil {
		if data, ok := resource.Data.(*metadata.BitmapFontResourceData); ok {
			data.Data.Glyphs = nil
			data.Data.Kernings = nil
			data.Pages = nil
		}
		resource.Data = nil
		resource.DataSize = 0
		resource.FullPath = ""
	}
	return nil
}

func (fl *BitmapFontLoader) importFNTFile(fntFileName string) (*metadata.BitmapFontResourceData, error) {
	font, err := bmfont.Load(fntFileName)
	if err != nil {
		return nil, err
	}
	desc := font.Descriptor

	outData := &metadata.BitmapFontResourceData{
		Data: &metadata.FontData{
			Face:       desc.Info.Face,
			Size:       uint32(desc.Info.Size),
			LineHeight: int32(desc.Common.LineHeight),
			Baseline:   int32(desc.Common.Base),
			AtlasSizeX: int32(desc.Common.ScaleW),
			AtlasSizeY: int32(desc.Common.ScaleH),
			Glyphs:     make(map[rune]*metadata.FontGlyph, len(desc.Chars)),
			Kernings:   make(map[[2]rune]int16, len(desc.Kerning)),
		},
	}

	dir := filepath.Dir(fntFileName)
	for _, p := range desc.Pages {
		outData.Pages = append(outData.Pages, &metadata.BitmapFontPage{
			ID:   int8(p.ID),
			File: filepath.Join(dir, p.File),
		})
	}
	sort.Slice(outData.Pages, func(i, j int) bool { return outData.Pages[i].ID < outData.Pages[j].ID })
	for i, p := range outData.Pages {
		if int(p.ID) != i {
			return nil, fmt.Errorf("%s: page ids are not contiguous", fntFileName)
		}
	}

	for _, g := range desc.Chars {
		codepoint := rune(g.ID)
		outData.Data.Glyphs[codepoint] = &metadata.FontGlyph{
			Codepoint: codepoint,
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		}
	}

	for p, k := range desc.Kerning {
		outData.Data.Kernings[[2]rune{rune(p.First), rune(p.Second)}] = int16(k.Amount)
	}

	// Tabs advance like four spaces, or four times the font size without a space glyph.
	if space, ok := outData.Data.Glyphs[' ']; ok {
		outData.Data.TabXAdvance = float32(space.XAdvance) * 4
	} else {
		outData.Data.TabXAdvance = float32(outData.Data.Size) * 4
	}

	return outData, nil
}

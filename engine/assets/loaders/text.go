package loaders

import (
	"os"
	"path/filepath"

	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

// TextLoader reads a file as a string, typically GLSL source.
type TextLoader struct{}

func (tl *TextLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		ResourceType: metadata.ResourceTypeText,
		Name:         filepath.Base(path),
		FullPath:     path,
		DataSize:     uint64(len(data)),
		Data:         string(data),
	}, nil
}

func (tl *TextLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}

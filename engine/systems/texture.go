package systems

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima2d/engine/assets"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/renderer"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

var (
	ErrTextureExists       = errors.New("texture already registered")
	ErrTextureNotFound     = errors.New("texture not registered")
	ErrTooManyTextures     = errors.New("texture system is full")
	ErrInvalidTextureInput = errors.New("invalid texture pixels or dimensions")
)

const (
	defaultTextureDimension uint32 = 256
	defaultTextureCell      uint32 = 32
)

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32
}

type TextureSystem struct {
	Config         *TextureSystemConfig
	DefaultTexture *metadata.Texture
	// Array of registered textures, indexed by TextureReference.Handle.
	RegisteredTextures []*metadata.Texture
	// Hashtable for texture lookups.
	RegisteredTextureTable map[string]*metadata.TextureReference
	// asset path -> texture name, for hot reload
	paths map[string]string
	// sub systems
	jobSystem    *JobSystem
	assetManager *assets.AssetManager
	backend      renderer.RendererBackend
}

/**
 * @brief Creates the texture system. The asset manager and the job system
 * may be nil, in which case only procedural textures can be created and
 * reloads happen synchronously.
 */
func NewTextureSystem(config *TextureSystemConfig, js *JobSystem, am *assets.AssetManager, backend renderer.RendererBackend) (*TextureSystem, error) {
	if config == nil || config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	if backend == nil {
		return nil, renderer.ErrNilBackend
	}

	ts := &TextureSystem{
		Config:                 config,
		RegisteredTextures:     make([]*metadata.Texture, config.MaxTextureCount),
		RegisteredTextureTable: make(map[string]*metadata.TextureReference),
		paths:                  make(map[string]string),
		jobSystem:              js,
		assetManager:           am,
		backend:                backend,
	}

	// Invalidate all textures in the array.
	for i := uint32(0); i < config.MaxTextureCount; i++ {
		ts.RegisteredTextures[i] = &metadata.Texture{
			ID:         metadata.InvalidID,
			Generation: metadata.InvalidID,
		}
	}

	return ts, nil
}

// Initialize uploads the checkerboard default texture.
func (ts *TextureSystem) Initialize() error {
	ts.DefaultTexture = &metadata.Texture{
		ID:           metadata.InvalidID,
		Name:         metadata.DEFAULT_TEXTURE_NAME,
		Width:        defaultTextureDimension,
		Height:       defaultTextureDimension,
		ChannelCount: 4,
		Filter:       metadata.TextureFilterModeNearest,
	}
	pixels := metadata.CheckerboardPixels(defaultTextureDimension, defaultTextureCell, 0, 0, 255)
	if err := ts.backend.TextureCreate(pixels, ts.DefaultTexture); err != nil {
		core.LogError("failed to create default texture: %s", err)
		return err
	}
	return nil
}

func (ts *TextureSystem) Shutdown() error {
	var errs []error
	for _, t := range ts.RegisteredTextures {
		if t.Generation != metadata.InvalidID {
			if err := ts.backend.TextureDestroy(t); err != nil {
				errs = append(errs, err)
			}
			ts.invalidate(t)
		}
	}
	ts.RegisteredTextureTable = make(map[string]*metadata.TextureReference)
	ts.paths = make(map[string]string)
	if ts.DefaultTexture != nil {
		if err := ts.backend.TextureDestroy(ts.DefaultTexture); err != nil {
			errs = append(errs, err)
		}
		ts.DefaultTexture = nil
	}
	return errors.Join(errs...)
}

func (ts *TextureSystem) GetDefaultTexture() *metadata.Texture {
	return ts.DefaultTexture
}

/**
 * @brief Attempts to acquire a texture with the given name. If it has not
 * yet been loaded, this triggers it to load from the assets directory. If
 * the texture is found its reference counter is incremented.
 *
 * @param name The texture name, or a path relative to the assets directory.
 * @param autoRelease Whether the texture is destroyed once its reference count reaches 0.
 */
func (ts *TextureSystem) Acquire(name string, autoRelease bool) (*metadata.Texture, error) {
	if name == metadata.DEFAULT_TEXTURE_NAME {
		core.LogWarn("func texture system Acquire called for default texture. Use GetDefaultTexture for texture 'default'")
		return ts.DefaultTexture, nil
	}
	if ref, ok := ts.RegisteredTextureTable[name]; ok {
		ref.ReferenceCount++
		return ts.RegisteredTextures[ref.Handle], nil
	}
	if ts.assetManager == nil {
		return nil, fmt.Errorf("texture %s: %w", name, core.ErrSystemNotReady)
	}

	path, err := ts.assetManager.ResolvePath(name, metadata.ResourceTypeImage)
	if err != nil {
		core.LogError("failed to resolve texture %s: %s", name, err)
		return nil, err
	}
	image, err := ts.loadImage(name)
	if err != nil {
		core.LogError("failed to load texture %s: %s", name, err)
		return nil, err
	}

	texture, err := ts.register(name, autoRelease, image.Width, image.Height, image.ChannelCount, image.Pixels)
	if err != nil {
		return nil, err
	}
	if image.HasTransparency {
		texture.Flags |= metadata.TextureFlagBits(metadata.TextureFlagHasTransparency)
	}
	ts.paths[path] = name
	return texture, nil
}

/**
 * @brief Acquires a texture from a file path under the assets directory,
 * such as the page image of a bitmap font.
 */
func (ts *TextureSystem) AcquirePath(fullPath string, autoRelease bool) (*metadata.Texture, error) {
	if ts.assetManager == nil {
		return nil, fmt.Errorf("texture %s: %w", fullPath, core.ErrSystemNotReady)
	}
	return ts.Acquire(ts.assetManager.RelativePath(fullPath), autoRelease)
}

/**
 * @brief Creates a texture from raw pixels. An empty name gets a generated
 * one. Procedural textures are never auto released.
 */
func (ts *TextureSystem) CreateFromPixels(name string, width, height uint32, channelCount uint8, pixels []uint8) (*metadata.Texture, error) {
	if width == 0 || height == 0 || channelCount == 0 || channelCount > 4 ||
		uint64(len(pixels)) < uint64(width)*uint64(height)*uint64(channelCount) {
		return nil, fmt.Errorf("%w: %dx%d with %d channels and %d bytes", ErrInvalidTextureInput, width, height, channelCount, len(pixels))
	}
	if name == "" {
		name = uuid.NewString()
	}
	if _, ok := ts.RegisteredTextureTable[name]; ok || name == metadata.DEFAULT_TEXTURE_NAME {
		return nil, fmt.Errorf("%w: %s", ErrTextureExists, name)
	}
	texture, err := ts.register(name, false, width, height, channelCount, pixels)
	if err != nil {
		return nil, err
	}
	if channelCount == 2 || channelCount == 4 {
		for i := int(channelCount) - 1; i < len(pixels); i += int(channelCount) {
			if pixels[i] < 255 {
				texture.Flags |= metadata.TextureFlagBits(metadata.TextureFlagHasTransparency)
				break
			}
		}
	}
	return texture, nil
}

func (ts *TextureSystem) register(name string, autoRelease bool, width, height uint32, channelCount uint8, pixels []uint8) (*metadata.Texture, error) {
	id := ts.freeSlot()
	if id == metadata.InvalidID {
		err := fmt.Errorf("%w: cannot register %s, adjust MaxTextureCount", ErrTooManyTextures, name)
		core.LogError(err.Error())
		return nil, err
	}

	texture := ts.RegisteredTextures[id]
	texture.ID = id
	texture.Name = name
	texture.Width = width
	texture.Height = height
	texture.ChannelCount = channelCount
	texture.Flags = 0
	texture.Filter = metadata.TextureFilterModeNearest
	texture.InternalData = nil

	if err := ts.backend.TextureCreate(pixels, texture); err != nil {
		ts.invalidate(texture)
		core.LogError("failed to upload texture %s: %s", name, err)
		return nil, err
	}
	texture.Generation = 0

	ts.RegisteredTextureTable[name] = &metadata.TextureReference{
		ReferenceCount: 1,
		Handle:         id,
		AutoRelease:    autoRelease,
	}
	core.LogDebug("texture %s registered with id %d", name, id)
	return texture, nil
}

func (ts *TextureSystem) freeSlot() uint32 {
	for i, t := range ts.RegisteredTextures {
		if t.ID == metadata.InvalidID {
			return uint32(i)
		}
	}
	return metadata.InvalidID
}

func (ts *TextureSystem) invalidate(texture *metadata.Texture) {
	texture.ID = metadata.InvalidID
	texture.Generation = metadata.InvalidID
	texture.Name = ""
	texture.InternalData = nil
}

/**
 * @brief Releases a texture with the given name. When the reference count
 * reaches 0 an auto released texture is destroyed.
 */
func (ts *TextureSystem) Release(name string) {
	// Ignore release requests for the default texture.
	if name == metadata.DEFAULT_TEXTURE_NAME {
		return
	}
	ref, ok := ts.RegisteredTextureTable[name]
	if !ok {
		core.LogWarn("texture system tried to release non-existent texture: %s", name)
		return
	}
	if ref.ReferenceCount > 0 {
		ref.ReferenceCount--
	}
	if ref.ReferenceCount > 0 || !ref.AutoRelease {
		return
	}

	texture := ts.RegisteredTextures[ref.Handle]
	if err := ts.backend.TextureDestroy(texture); err != nil {
		core.LogError("failed to destroy texture %s: %s", name, err)
	}
	ts.invalidate(texture)
	// The slot gets a fresh *Texture so no one holding the old pointer can
	// see a different texture appear behind it.
	ts.RegisteredTextures[ref.Handle] = &metadata.Texture{ID: metadata.InvalidID, Generation: metadata.InvalidID}
	delete(ts.RegisteredTextureTable, name)
	for path, n := range ts.paths {
		if n == name {
			delete(ts.paths, path)
		}
	}
	core.LogDebug("texture %s released", name)
}

// Get returns a registered texture without touching its reference count.
func (ts *TextureSystem) Get(name string) (*metadata.Texture, bool) {
	if name == metadata.DEFAULT_TEXTURE_NAME {
		return ts.DefaultTexture, ts.DefaultTexture != nil
	}
	ref, ok := ts.RegisteredTextureTable[name]
	if !ok {
		return nil, false
	}
	return ts.RegisteredTextures[ref.Handle], true
}

func (ts *TextureSystem) ReferenceCount(name string) uint64 {
	if ref, ok := ts.RegisteredTextureTable[name]; ok {
		return ref.ReferenceCount
	}
	return 0
}

func (ts *TextureSystem) Count() int {
	return len(ts.RegisteredTextureTable)
}

/**
 * @brief Applies pending hot reloads. Must run on the render thread,
 * outside of a frame.
 */
func (ts *TextureSystem) Update() {
	if ts.assetManager == nil {
		return
	}
	changes := ts.assetManager.Changes()
	for {
		select {
		case path, ok := <-changes:
			if !ok {
				return
			}
			if err := ts.Reload(path); err != nil && !errors.Is(err, ErrTextureNotFound) {
				core.LogError("failed to reload %s: %s", path, err)
			}
		default:
			return
		}
	}
}

/**
 * @brief Reloads the texture backed by the given asset path. Decoding runs
 * on the job system when there is one; the upload always happens on the
 * caller's thread in JobSystem.Update. The texture keeps its identity and
 * its generation is incremented.
 */
func (ts *TextureSystem) Reload(path string) error {
	name, ok := ts.paths[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTextureNotFound, path)
	}

	load := func() (interface{}, error) {
		return ts.loadImage(name)
	}
	apply := func(result interface{}) {
		image := result.(*metadata.ImageResourceData)
		if err := ts.replace(name, image); err != nil {
			core.LogError("failed to upload reloaded texture %s: %s", name, err)
		}
	}

	if ts.jobSystem == nil {
		image, err := load()
		if err != nil {
			return err
		}
		apply(image)
		return nil
	}
	return ts.jobSystem.Submit(JobTask{
		Name:       "texture reload " + name,
		Run:        load,
		OnComplete: apply,
		OnFailure: func(err error) {
			core.LogError("failed to reload texture %s: %s", name, err)
		},
	})
}

func (ts *TextureSystem) replace(name string, image *metadata.ImageResourceData) error {
	ref, ok := ts.RegisteredTextureTable[name]
	if !ok {
		// Released while the job was running.
		return nil
	}
	texture := ts.RegisteredTextures[ref.Handle]
	if err := ts.backend.TextureDestroy(texture); err != nil {
		return err
	}
	texture.Width = image.Width
	texture.Height = image.Height
	texture.ChannelCount = image.ChannelCount
	texture.Flags = 0
	if image.HasTransparency {
		texture.Flags |= metadata.TextureFlagBits(metadata.TextureFlagHasTransparency)
	}
	if err := ts.backend.TextureCreate(image.Pixels, texture); err != nil {
		return err
	}
	texture.Generation++
	core.LogInfo("texture %s reloaded, generation %d", name, texture.Generation)
	return nil
}

func (ts *TextureSystem) loadImage(name string) (*metadata.ImageResourceData, error) {
	resource, err := ts.assetManager.LoadAsset(name, metadata.ResourceTypeImage, &metadata.ImageResourceParams{FlipY: false})
	if err != nil {
		return nil, err
	}
	image, ok := resource.Data.(*metadata.ImageResourceData)
	if !ok {
		return nil, fmt.Errorf("texture %s: unexpected resource data %T", name, resource.Data)
	}
	// Pixels stay referenced by image; only the resource bookkeeping is dropped.
	resource.Data = nil
	return image, nil
}

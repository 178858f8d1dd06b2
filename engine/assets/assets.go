package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima2d/engine/assets/loaders"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

var (
	ErrAssetNotFound    = errors.New("asset not found")
	ErrNoLoader         = errors.New("no loader registered for asset type")
	ErrWatcherClosed    = errors.New("asset watcher already closed")
	ErrUnknownAssetType = errors.New("unknown resource type")
)

const changesBufferSize = 64

// Extensions tried, in order, when an image is requested without one.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp", ".gif"}

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetManager indexes the assets directory, loads resources through the
// registered loaders and reports modified files for hot reload.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	changes  chan string
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		changes:  make(chan string, changesBufferSize),
		done:     make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	am.root = root

	// Register loaders
	am.RegisterLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.RegisterLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.RegisterLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.RegisterLoader(metadata.ResourceTypeText, &loaders.TextLoader{})
	am.RegisterLoader(metadata.ResourceTypeBitmapFont, &loaders.BitmapFontLoader{})

	if err := am.addRecursive(root); err != nil {
		return err
	}

	am.stopped.Add(1)
	go am.start()

	core.LogDebug("asset manager watching %s (%d assets)", root, am.Count())
	return nil
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	am.stopped.Wait()
	return nil
}

// Root is the absolute assets directory.
func (am *AssetManager) Root() string {
	return am.root
}

// Changes delivers the relative path of every known asset that is written
// on disk. Events are dropped when nobody drains the channel.
func (am *AssetManager) Changes() <-chan string {
	return am.changes
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return ErrWatcherClosed
	}
	return am.watchRecursive(name)
}

// Register loaders for each asset type
func (am *AssetManager) RegisterLoader(assetType metadata.ResourceType, loader Loader) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.loaders[assetType] = loader
}

// ResolvePath maps a resource name to its path relative to the assets
// directory, following the directory convention of each type.
func (am *AssetManager) ResolvePath(name string, resourceType metadata.ResourceType) (string, error) {
	switch resourceType {
	case metadata.ResourceTypeShader:
		return filepath.ToSlash(filepath.Join("shaders", name+".shadercfg")), nil
	case metadata.ResourceTypeBitmapFont:
		return filepath.ToSlash(filepath.Join("fonts", name+".fnt")), nil
	case metadata.ResourceTypeImage:
		// Names with a directory are already relative to the assets root.
		if strings.Contains(name, "/") {
			return filepath.ToSlash(filepath.Clean(name)), nil
		}
		base := filepath.ToSlash(filepath.Join("textures", name))
		if filepath.Ext(name) != "" {
			return base, nil
		}
		am.mutex.RLock()
		defer am.mutex.RUnlock()
		for _, ext := range imageExtensions {
			if _, ok := am.assets[base+ext]; ok {
				return base + ext, nil
			}
		}
		return "", fmt.Errorf("%w: image %s", ErrAssetNotFound, name)
	case metadata.ResourceTypeText, metadata.ResourceTypeBinary:
		return filepath.ToSlash(name), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAssetType, resourceType)
}

// Load an asset using the appropriate loader
func (am *AssetManager) LoadAsset(name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	path, err := am.ResolvePath(name, resourceType)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		// Load or reload asset from disk if necessary
		asset.LastLoaded = time.Now()
		am.assets[path] = asset
	}
	loader, loaderExists := am.loaders[resourceType]
	am.mutex.Unlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, path)
	}
	if !loaderExists {
		return nil, fmt.Errorf("%w: %s", ErrNoLoader, resourceType)
	}

	resource, err := loader.Load(am.fullPath(path), resourceType, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	resource.ResourceType = resourceType
	if resource.Name == "" {
		resource.Name = name
	}
	return resource, nil
}

func (am *AssetManager) UnloadAsset(resource *metadata.Resource) error {
	if resource == nil {
		return nil
	}
	am.mutex.RLock()
	loader, ok := am.loaders[resource.ResourceType]
	am.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoLoader, resource.ResourceType)
	}
	return loader.Unload(resource)
}

// Lookup returns the indexed info of a relative path.
func (am *AssetManager) Lookup(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.ToSlash(path)]
	return info, ok
}

func (am *AssetManager) Count() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

func (am *AssetManager) fullPath(path string) string {
	return filepath.Join(am.root, filepath.FromSlash(path))
}

// RelativePath maps a path under the assets directory to its index key.
func (am *AssetManager) RelativePath(path string) string {
	rel, err := filepath.Rel(am.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (am *AssetManager) start() {
	defer am.stopped.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatcherEvent(e)

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", e)

		case <-am.done:
			am.fsnotify.Close()
			close(am.changes)
			return
		}
	}
}

func (am *AssetManager) handleWatcherEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch %s: %s", e.Name, err)
			}
		}
		return
	}
	// Handle create or modify events
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		if path, ok := am.handleFileEvent(e.Name); ok {
			am.notify(path)
		}
	}
	// Can't stat a deleted directory, so try to remove it from the watch
	// list whatever it was.
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(e.Name)
		_ = am.fsnotify.Remove(e.Name)
	}
}

func (am *AssetManager) notify(path string) {
	select {
	case am.changes <- path:
	default:
		core.LogDebug("asset change dropped, nobody is listening: %s", path)
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files found along the way.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) (string, bool) {
	assetType := DetermineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return "", false
	}
	rel := am.RelativePath(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info, exists := am.assets[rel]
	if !exists {
		info = AssetInfo{Path: rel, Type: assetType}
	}
	am.assets[rel] = info
	return rel, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, am.RelativePath(path))
}

func DetermineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shadercfg":
		return metadata.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp", ".gif":
		return metadata.ResourceTypeImage
	case ".fnt":
		return metadata.ResourceTypeBitmapFont
	case ".spv":
		return metadata.ResourceTypeBinary
	case ".vert", ".frag", ".glsl", ".txt":
		return metadata.ResourceTypeText
	default:
		return metadata.ResourceTypeNone
	}
}

// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asset

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"cogentcore.org/spatial/events"
	"github.com/fsnotify/fsnotify"
)

// Library owns all loaded assets, resolving them by name for the
// scene and renderer. It is safe for concurrent use. With a watch
// configured, edits to loaded files reload them in place and emit
// an [events.AssetEvent] so consumers can re-resolve.
type Library struct {
	mu sync.RWMutex

	// Root is the base directory for relative asset paths.
	Root string

	// Notify, if set, receives an [events.AssetEvent] whenever a
	// watched file reloads.
	Notify *events.Queue

	protos    map[string]*Prototype
	meshes    map[string]*Mesh
	materials map[string]Material
	textures  map[string]*Texture
	skeletons map[string]*Skeleton
	byPath    map[string]string

	watcher       *fsnotify.Watcher
	watched       map[string]bool
	doneWatcher   chan bool
	lastWatchPath string
	lastWatchTime time.Time
}

// NewLibrary returns a library rooted at the given directory, with
// the built-in white fallback texture registered.
func NewLibrary(root string) *Library {
	lb := &Library{
		Root:      root,
		protos:    make(map[string]*Prototype),
		meshes:    make(map[string]*Mesh),
		materials: make(map[string]Material),
		textures:  make(map[string]*Texture),
		skeletons: make(map[string]*Skeleton),
		byPath:    make(map[string]string),
	}
	lb.AddTexture(WhiteTexture())
	return lb
}

// Abs resolves a possibly relative asset path against the root.
func (lb *Library) Abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(lb.Root, path)
}

// Open loads the given model, bundle, or image file, registering
// everything it contains. Loading a file again replaces the previous
// contents. Returns the prototype, or nil for plain image files.
func (lb *Library) Open(path string) (*Prototype, error) {
	path = lb.Abs(path)
	kind, err := DetectPath(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case ModelFile:
		pt, err := OpenModel(path)
		if err != nil {
			return nil, err
		}
		lb.addPrototype(path, pt)
		return pt, nil
	case BundleFile:
		pt, err := OpenBundle(path)
		if err != nil {
			return nil, err
		}
		lb.addPrototype(path, pt)
		return pt, nil
	case ImageFile:
		tex, err := OpenTexture(path)
		if err != nil {
			return nil, err
		}
		tex.GenerateMips()
		lb.AddTexture(tex)
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

func (lb *Library) addPrototype(path string, pt *Prototype) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.byPath[path] = pt.Name
	lb.registerPrototype(pt)
}

// AddPrototype registers a prototype and everything it contains,
// replacing same-name entries. Used for programmatically assembled
// content; file-loaded prototypes register through [Library.Open].
func (lb *Library) AddPrototype(pt *Prototype) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.registerPrototype(pt)
}

// registerPrototype requires lb.mu.
func (lb *Library) registerPrototype(pt *Prototype) {
	lb.protos[pt.Name] = pt
	for _, ms := range pt.Meshes {
		lb.meshes[ms.Name] = ms
	}
	for _, mt := range pt.Materials {
		lb.materials[mt.AsMaterialBase().Name] = mt
	}
	for _, tx := range pt.Textures {
		lb.textures[tx.Name] = tx
	}
	for _, sk := range pt.Skeletons {
		lb.skeletons[sk.Name] = sk
	}
}

// AddMesh registers a mesh, replacing any existing mesh of the same
// name. Used for procedural geometry.
func (lb *Library) AddMesh(ms *Mesh) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.meshes[ms.Name] = ms
}

// AddMaterial registers a material under its name.
func (lb *Library) AddMaterial(mt Material) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.materials[mt.AsMaterialBase().Name] = mt
}

// AddTexture registers a texture under its name.
func (lb *Library) AddTexture(tx *Texture) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.textures[tx.Name] = tx
}

// AddSkeleton registers a skeleton under its name.
func (lb *Library) AddSkeleton(sk *Skeleton) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.skeletons[sk.Name] = sk
}

// Prototype returns the named prototype, or nil if not found.
func (lb *Library) Prototype(name string) *Prototype {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.protos[name]
}

// Mesh returns the named mesh, or nil if not found.
func (lb *Library) Mesh(name string) *Mesh {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.meshes[name]
}

// Material returns the named material, or nil if not found.
func (lb *Library) Material(name string) Material {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.materials[name]
}

// Texture returns the named texture, or nil if not found.
func (lb *Library) Texture(name string) *Texture {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.textures[name]
}

// Skeleton returns the named skeleton, or nil if not found.
func (lb *Library) Skeleton(name string) *Skeleton {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.skeletons[name]
}

////////////////////////////////////////////////////////////////
// Watching

// configWatcher configures a new watcher for the library.
func (lb *Library) configWatcher() error {
	if lb.watcher != nil {
		return nil
	}
	lb.watched = make(map[string]bool)
	var err error
	lb.watcher, err = fsnotify.NewWatcher()
	return err
}

// WatchPath adds the given loaded file to those watched for changes.
func (lb *Library) WatchPath(path string) error {
	path = lb.Abs(path)
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.watched[path] {
		return nil
	}
	if err := lb.configWatcher(); err != nil {
		return err
	}
	if err := lb.watcher.Add(path); err != nil {
		return fmt.Errorf("asset: watching %s: %w", path, err)
	}
	lb.watched[path] = true
	lb.watchWatcher()
	return nil
}

// watchWatcher monitors the watcher channel for update events.
// Safe to call multiple times.
func (lb *Library) watchWatcher() {
	if lb.watcher == nil || lb.doneWatcher != nil {
		return
	}
	lb.doneWatcher = make(chan bool)
	go func() {
		watch := lb.watcher
		done := lb.doneWatcher
		for {
			select {
			case <-done:
				return
			case event := <-watch.Events:
				switch {
				case event.Op&fsnotify.Write == fsnotify.Write ||
					event.Op&fsnotify.Create == fsnotify.Create:
					lb.watchUpdate(event.Name)
				}
			case err := <-watch.Errors:
				if err != nil {
					slog.Error("asset: watcher", "err", err)
				}
			}
		}
	}()
}

// watchUpdate reloads the changed file, with a short debounce since
// editors produce bursts of events per save.
func (lb *Library) watchUpdate(path string) {
	lb.mu.Lock()
	if path == lb.lastWatchPath && time.Since(lb.lastWatchTime) < 100*time.Millisecond {
		lb.mu.Unlock()
		return
	}
	lb.lastWatchPath = path
	lb.lastWatchTime = time.Now()
	notify := lb.Notify
	lb.mu.Unlock()

	if _, err := lb.Open(path); err != nil {
		slog.Error("asset: reload", "path", path, "err", err)
		return
	}
	if notify != nil {
		notify.Push(events.AssetEvent{Path: path})
	}
}

// Close stops the file watcher. The loaded assets stay resolvable.
func (lb *Library) Close() error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.doneWatcher != nil {
		close(lb.doneWatcher)
		lb.doneWatcher = nil
	}
	if lb.watcher != nil {
		err := lb.watcher.Close()
		lb.watcher = nil
		return err
	}
	return nil
}

// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asset

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Bundles are zstd-compressed prototype archives (.mbz): a JSON
// header line followed by a gob payload. They load much faster than
// glTF and carry exactly the asset types this package defines, so
// tools bake models into bundles for shipping.

func init() {
	gob.Register(&PBRMaterial{})
	gob.Register(&OcclusionMaterial{})
}

// BundleHeader identifies a bundle file and its payload version.
type BundleHeader struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
}

const bundleVersion = 1

type bundleTexture struct {
	Name  string
	SRGB  bool
	Image *image.RGBA
}

type bundleV1 struct {
	Meshes    []*Mesh
	Materials []Material
	Textures  []bundleTexture
	Skeletons []*Skeleton
	Nodes     []PrototypeNode
}

// WriteBundle writes the prototype to path as a compressed bundle,
// creating parent directories as needed. Only the base level of each
// texture is stored; mips regenerate on load.
func WriteBundle(path string, pt *Prototype) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(BundleHeader{Version: bundleVersion, Name: pt.Name})
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	bd := bundleV1{
		Meshes:    pt.Meshes,
		Materials: pt.Materials,
		Skeletons: pt.Skeletons,
		Nodes:     pt.Nodes,
	}
	for _, tx := range pt.Textures {
		bd.Textures = append(bd.Textures, bundleTexture{Name: tx.Name, SRGB: tx.SRGB, Image: tx.Image()})
	}
	if err := gob.NewEncoder(bw).Encode(&bd); err != nil {
		return fmt.Errorf("asset: bundle encode: %w", err)
	}
	return nil
}

// OpenBundle reads a compressed bundle written by [WriteBundle].
func OpenBundle(path string) (*Prototype, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	hb, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("asset: bundle header: %w", err)
	}
	var hdr BundleHeader
	if err := json.Unmarshal(hb, &hdr); err != nil {
		return nil, fmt.Errorf("asset: bundle header: %w", err)
	}
	if hdr.Version != bundleVersion {
		return nil, fmt.Errorf("asset: bundle version %d not supported", hdr.Version)
	}

	var bd bundleV1
	if err := gob.NewDecoder(br).Decode(&bd); err != nil {
		return nil, fmt.Errorf("asset: bundle decode: %w", err)
	}

	pt := &Prototype{
		Name:      hdr.Name,
		Meshes:    bd.Meshes,
		Materials: bd.Materials,
		Skeletons: bd.Skeletons,
		Nodes:     bd.Nodes,
	}
	for _, tx := range bd.Textures {
		tex := &Texture{Name: tx.Name, Mips: []*image.RGBA{tx.Image}, SRGB: tx.SRGB}
		tex.GenerateMips()
		pt.Textures = append(pt.Textures, tex)
	}
	return pt, nil
}

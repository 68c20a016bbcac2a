// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asset

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// Kinds categorizes loadable asset files.
type Kinds int32

const (
	UnknownFile Kinds = iota

	// ModelFile is a glTF model, binary or JSON form.
	ModelFile

	// BundleFile is a compressed prototype bundle (.mbz).
	BundleFile

	// ImageFile is a standalone texture image.
	ImageFile
)

func (k Kinds) String() string {
	switch k {
	case ModelFile:
		return "ModelFile"
	case BundleFile:
		return "BundleFile"
	case ImageFile:
		return "ImageFile"
	}
	return "UnknownFile"
}

var (
	glbType = filetype.NewType("glb", "model/gltf-binary")
	mbzType = filetype.NewType("mbz", "application/zstd")
)

func init() {
	filetype.AddMatcher(glbType, func(buf []byte) bool {
		return len(buf) >= 4 && buf[0] == 'g' && buf[1] == 'l' && buf[2] == 'T' && buf[3] == 'F'
	})
	filetype.AddMatcher(mbzType, func(buf []byte) bool {
		return len(buf) >= 4 && buf[0] == 0x28 && buf[1] == 0xb5 && buf[2] == 0x2f && buf[3] == 0xfd
	})
}

// Detect sniffs an asset kind from the leading bytes of a file.
// 262 bytes are enough for every known signature.
func Detect(buf []byte) Kinds {
	kind, err := filetype.Match(buf)
	if err == nil {
		switch kind {
		case glbType:
			return ModelFile
		case mbzType:
			return BundleFile
		}
	}
	if filetype.IsImage(buf) {
		return ImageFile
	}
	return UnknownFile
}

// DetectPath sniffs the kind of the given file from its content,
// falling back to the extension for text formats like .gltf that
// have no magic bytes.
func DetectPath(path string) (Kinds, error) {
	f, err := os.Open(path)
	if err != nil {
		return UnknownFile, err
	}
	defer f.Close()

	buf := make([]byte, 262)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return UnknownFile, err
	}
	if k := Detect(buf[:n]); k != UnknownFile {
		return k, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf":
		return ModelFile, nil
	case ".mbz":
		return BundleFile, nil
	}
	return UnknownFile, nil
}

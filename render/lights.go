// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/asset"
)

// MaxLights is the most analytic lights uploaded per frame; extras
// are dropped in list order.
const MaxLights = 64

// lightWords is the float32 word count of one packed light record:
// four vec4s holding position+kind, direction+range, premultiplied
// color, and the spot cone cosines.
const lightWords = 16

// lightsSize is the byte size of the full light array binding.
const lightsSize = MaxLights * lightWords * 4

// packLights encodes lights into the shader record layout and
// returns how many were packed.
func packLights(dst []float32, lights []asset.Light) int {
	n := min(len(lights), MaxLights)
	for i := 0; i < n; i++ {
		lt := &lights[i]
		rec := dst[i*lightWords : (i+1)*lightWords]
		rec[0], rec[1], rec[2] = lt.Position.X, lt.Position.Y, lt.Position.Z
		rec[3] = float32(lt.Kind)
		rec[4], rec[5], rec[6] = lt.Direction.X, lt.Direction.Y, lt.Direction.Z
		rec[7] = lt.Range
		rec[8] = lt.Color.X * lt.Intensity
		rec[9] = lt.Color.Y * lt.Intensity
		rec[10] = lt.Color.Z * lt.Intensity
		rec[11] = 0
		// spot falloff runs between the cone cosines
		rec[12] = math32.Cos(math32.DegToRad(lt.InnerConeAngle))
		rec[13] = math32.Cos(math32.DegToRad(lt.OuterConeAngle))
		rec[14] = 0
		rec[15] = 0
	}
	return n
}

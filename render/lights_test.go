// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"testing"

	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/asset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackLights(t *testing.T) {
	lights := []asset.Light{
		asset.DirectionalLight(math32.Vec3(1, 1, 1), 2, math32.Vec3(0, -1, 0)),
		asset.PointLight(math32.Vec3(1, 0.5, 0), 10, math32.Vec3(1, 2, 3), 5),
		asset.SpotLight(math32.Vec3(0, 0, 1), 4, math32.Vec3(0, 1, 0), math32.Vec3(0, -1, 0), 8, 20, 35),
	}
	var dst [MaxLights * lightWords]float32
	n := packLights(dst[:], lights)
	require.Equal(t, 3, n)

	sun := dst[0:lightWords]
	assert.Equal(t, float32(asset.Directional), sun[3])
	assert.Equal(t, float32(-1), sun[5])
	// color rides premultiplied by intensity
	assert.Equal(t, float32(2), sun[8])

	point := dst[lightWords : 2*lightWords]
	assert.Equal(t, float32(asset.Point), point[3])
	assert.Equal(t, []float32{1, 2, 3}, []float32{point[0], point[1], point[2]})
	assert.Equal(t, float32(5), point[7])
	assert.Equal(t, float32(10*0.5), point[9])

	spot := dst[2*lightWords : 3*lightWords]
	assert.Equal(t, float32(asset.Spot), spot[3])
	// cone angles pack as cosines, inner then outer
	assert.InDelta(t, math32.Cos(math32.DegToRad(20)), spot[12], 1e-6)
	assert.InDelta(t, math32.Cos(math32.DegToRad(35)), spot[13], 1e-6)
	assert.Greater(t, spot[12], spot[13])
}

func TestPackLightsCap(t *testing.T) {
	lights := make([]asset.Light, MaxLights+20)
	var dst [MaxLights * lightWords]float32
	assert.Equal(t, MaxLights, packLights(dst[:], lights))
}

func TestPackLightsEmpty(t *testing.T) {
	var dst [MaxLights * lightWords]float32
	assert.Equal(t, 0, packLights(dst[:], nil))
}

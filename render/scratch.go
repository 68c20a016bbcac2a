// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultScratchSize is the scratch ring size used when the host does
// not configure one.
const DefaultScratchSize = 4 << 20

// ScratchBuffer is the per-frame ring of uniform and storage scratch
// memory: pass constants, instance and material constants, joint
// matrices, and light records all live here. Alloc hands out offsets
// into one large GPU buffer along with staging bytes to fill; Flush
// uploads everything written since the previous flush with one
// WriteBuffer per contiguous region.
type ScratchBuffer struct {
	dv      *Device
	buffer  *wgpu.Buffer
	staging []byte
	align   int
	head    int
	regions []bufferRegion
}

// bufferRegion is a half-open byte range of the staging buffer
// written since the last flush.
type bufferRegion struct {
	start, end int
}

// NewScratchBuffer returns a scratch ring of the given size, 0 for
// [DefaultScratchSize]. Allocation alignment comes from the device
// limits; with a nil device the ring still allocates, for tests, but
// cannot flush.
func NewScratchBuffer(dv *Device, size int) (*ScratchBuffer, error) {
	if size <= 0 {
		size = DefaultScratchSize
	}
	align := 256
	if dv != nil {
		lm := &dv.Limits.Limits
		if a := int(lm.MinUniformBufferOffsetAlignment); a > 0 {
			align = a
		}
		if a := int(lm.MinStorageBufferOffsetAlignment); a > align {
			align = a
		}
	}
	sb := &ScratchBuffer{dv: dv, staging: make([]byte, size), align: align}
	if dv != nil && dv.WGPU != nil {
		buf, err := dv.WGPU.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "scratch",
			Size:  uint64(size),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("render: creating scratch buffer: %w", err)
		}
		sb.buffer = buf
	}
	return sb, nil
}

// Size returns the ring size in bytes.
func (sb *ScratchBuffer) Size() int {
	return len(sb.staging)
}

// Align returns the ring's allocation alignment.
func (sb *ScratchBuffer) Align() int {
	return sb.align
}

// Buffer returns the GPU buffer backing the ring, for bind group
// creation. Nil until the ring has a device.
func (sb *ScratchBuffer) Buffer() *wgpu.Buffer {
	return sb.buffer
}

// Alloc reserves size bytes and returns the buffer offset plus the
// staging bytes to fill. The offset is a multiple of align, or of the
// ring alignment when align <= 0; dynamic-offset bindings need the
// ring alignment. When the tail cannot fit the request the ring wraps
// to zero. A single request larger than the ring panics.
func (sb *ScratchBuffer) Alloc(size, align int) (int, []byte) {
	if size > len(sb.staging) {
		panic(fmt.Sprintf("render: scratch allocation of %d bytes exceeds ring size %d", size, len(sb.staging)))
	}
	if align <= 0 {
		align = sb.align
	}
	off := MemSizeAlign(sb.head, align)
	if off+size > len(sb.staging) {
		off = 0
	}
	sb.head = off + size
	sb.mark(off, sb.head)
	return off, sb.staging[off : off+size : off+size]
}

// mark extends the written-region list to cover [start,end). Writes
// on the same lap fold into the current region, alignment gaps
// included; a wrap starts a new region at zero.
func (sb *ScratchBuffer) mark(start, end int) {
	n := len(sb.regions)
	if n > 0 && start >= sb.regions[n-1].start {
		sb.regions[n-1].end = end
		return
	}
	sb.regions = append(sb.regions, bufferRegion{start, end})
}

// Flush uploads every region written since the last flush and resets
// the region list. Flushing after the ring wrapped onto data written
// earlier in the same frame is an error: the frame was about to read
// overwritten constants, and the host must grow the ring.
func (sb *ScratchBuffer) Flush() error {
	regions := sb.regions
	sb.regions = sb.regions[:0]
	if len(regions) == 0 {
		return nil
	}
	if len(regions) == 2 && regions[1].end > regions[0].start {
		return fmt.Errorf("render: scratch ring of %d bytes wrapped onto live data; increase the scratch size", len(sb.staging))
	}
	if sb.buffer == nil {
		return fmt.Errorf("render: scratch ring has no device")
	}
	for _, rg := range regions {
		// WriteBuffer sizes must be 4 byte multiples
		end := min(len(sb.staging), (rg.end+3)&^3)
		if err := sb.dv.Queue.WriteBuffer(sb.buffer, uint64(rg.start), sb.staging[rg.start:end]); err != nil {
			return fmt.Errorf("render: uploading scratch region: %w", err)
		}
	}
	return nil
}

// Release frees the GPU buffer.
func (sb *ScratchBuffer) Release() {
	if sb.buffer != nil {
		sb.buffer.Release()
		sb.buffer = nil
	}
}

// MemSizeAlign returns size rounded up to a multiple of align.
func MemSizeAlign(size, align int) int {
	if align <= 0 || size%align == 0 {
		return size
	}
	return (size/align + 1) * align
}

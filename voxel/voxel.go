// Package voxel defines the packed 4-byte Voxel type and the ChunkDescriptor
// that stores a chunk's linear voxel array plus streaming metadata.
package voxel

// SurfaceThreshold is the density value at and above which a voxel is
// considered solid; strictly below denotes air.
const SurfaceThreshold = 127

// Flag bits occupy the high nibble of Metadata. They are stored pre-shifted
// (i.e. FlagWater is 0x10 in the raw byte, not 0x01) so they can be ORed
// directly into Metadata without an extra shift at every call site.
const (
	FlagWater uint8 = 0x10
	FlagCave  uint8 = 0x20
)

const metadataAOMask = 0x0F
const metadataFlagMask = 0xF0

// Voxel is exactly 4 bytes: material_id, density, biome_id, metadata. The
// low nibble of Metadata is ambient occlusion (0..15); the high nibble holds
// user flags (FlagWater, FlagCave).
type Voxel struct {
	MaterialID uint8
	Density    uint8
	BiomeID    uint8
	Metadata   uint8
}

// Air is the zero-value voxel.
func Air() Voxel {
	return Voxel{}
}

// Water is an air voxel carrying the water flag.
func Water() Voxel {
	return Voxel{Metadata: FlagWater}
}

// Solid constructs a fully solid voxel of the given material and biome.
func Solid(materialID, biomeID uint8) Voxel {
	return Voxel{MaterialID: materialID, Density: 255, BiomeID: biomeID}
}

// IsSolid reports whether the voxel's density is at or above SurfaceThreshold.
func (v Voxel) IsSolid() bool {
	return v.Density >= SurfaceThreshold
}

// IsAir reports whether the voxel's density is strictly below SurfaceThreshold.
func (v Voxel) IsAir() bool {
	return v.Density < SurfaceThreshold
}

// AO returns the ambient-occlusion nibble (0..15).
func (v Voxel) AO() uint8 {
	return v.Metadata & metadataAOMask
}

// WithAO returns a copy of v with its AO nibble replaced, flags preserved.
func (v Voxel) WithAO(ao uint8) Voxel {
	v.Metadata = (v.Metadata & metadataFlagMask) | (ao & metadataAOMask)
	return v
}

// Flags returns the raw flag nibble as stored (pre-shifted high nibble).
func (v Voxel) Flags() uint8 {
	return v.Metadata & metadataFlagMask
}

// WithFlags returns a copy of v with its flag nibble replaced, AO preserved.
// flags must already be expressed in the pre-shifted form (FlagWater,
// FlagCave, or their bitwise OR).
func (v Voxel) WithFlags(flags uint8) Voxel {
	v.Metadata = (v.Metadata & metadataAOMask) | (flags & metadataFlagMask)
	return v
}

// HasWaterFlag reports whether the water flag is set.
func (v Voxel) HasWaterFlag() bool {
	return v.Metadata&FlagWater != 0
}

// WithWaterFlag returns a copy of v with the water flag set or cleared.
func (v Voxel) WithWaterFlag(set bool) Voxel {
	if set {
		v.Metadata |= FlagWater
	} else {
		v.Metadata &^= FlagWater
	}
	return v
}

// HasCaveFlag reports whether the cave flag is set.
func (v Voxel) HasCaveFlag() bool {
	return v.Metadata&FlagCave != 0
}

// WithCaveFlag returns a copy of v with the cave flag set or cleared.
func (v Voxel) WithCaveFlag(set bool) Voxel {
	if set {
		v.Metadata |= FlagCave
	} else {
		v.Metadata &^= FlagCave
	}
	return v
}

// Pack returns the wire/file representation: material_id | density<<8 |
// biome_id<<16 | metadata<<24.
func (v Voxel) Pack() uint32 {
	return uint32(v.MaterialID) | uint32(v.Density)<<8 | uint32(v.BiomeID)<<16 | uint32(v.Metadata)<<24
}

// Unpack reconstructs a Voxel from its packed u32 form. Unpack(v.Pack()) ==
// v for all v.
func Unpack(packed uint32) Voxel {
	return Voxel{
		MaterialID: uint8(packed),
		Density:    uint8(packed >> 8),
		BiomeID:    uint8(packed >> 16),
		Metadata:   uint8(packed >> 24),
	}
}

// Bytes returns the voxel as its four wire bytes, in (material, density,
// biome, metadata) order, matching the edit-persistence format's new_data/
// original_data layout.
func (v Voxel) Bytes() [4]byte {
	return [4]byte{v.MaterialID, v.Density, v.BiomeID, v.Metadata}
}

// FromBytes constructs a Voxel from its four wire bytes.
func FromBytes(b [4]byte) Voxel {
	return Voxel{MaterialID: b[0], Density: b[1], BiomeID: b[2], Metadata: b[3]}
}

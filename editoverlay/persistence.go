package editoverlay

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/draquel/voxelterrain/coords"
	"github.com/draquel/voxelterrain/engerr"
	"github.com/draquel/voxelterrain/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// veTIMagic is the four-byte file signature "VETI".
const veTIMagic uint32 = 0x56455449

// currentVersion is the version written by Save. Readers additionally
// accept version 1 for backward compatibility.
const currentVersion uint32 = 2

var byteOrder = binary.LittleEndian

// versionFields is what differs between format versions: whether the
// per-edit stream carries an (edit_mode, density_delta, brush_material_id)
// prefix before new_data at all. Version 1 has no such prefix; its fields
// are synthesized from new_data after the fact. Fields common to every
// version (local position, new_data, original_data) are handled once in
// the Save/Load loops. A hypothetical v3 only needs a new entry here plus
// its own synthesize/write functions — v1 and v2 decode paths stay
// untouched.
type versionFields struct {
	hasPrefix   bool
	readPrefix  func(r io.Reader) (mode EditMode, delta int32, material uint8, err error)
	writePrefix func(w io.Writer, rec EditRecord) error
	synthesize  func(newData voxel.Voxel) (mode EditMode, delta int32, material uint8)
}

var versionTable = map[uint32]versionFields{
	1: {
		hasPrefix: false,
		synthesize: func(newData voxel.Voxel) (EditMode, int32, uint8) {
			return ModeSet, 0, newData.MaterialID
		},
		// Version 1 is read-only: Save always emits the current version.
	},
	2: {
		hasPrefix: true,
		readPrefix: func(r io.Reader) (EditMode, int32, uint8, error) {
			var modeByte uint8
			var delta int32
			var material uint8
			if err := binary.Read(r, byteOrder, &modeByte); err != nil {
				return 0, 0, 0, err
			}
			if err := binary.Read(r, byteOrder, &delta); err != nil {
				return 0, 0, 0, err
			}
			if err := binary.Read(r, byteOrder, &material); err != nil {
				return 0, 0, 0, err
			}
			return EditMode(modeByte), delta, material, nil
		},
		writePrefix: func(w io.Writer, rec EditRecord) error {
			if err := binary.Write(w, byteOrder, uint8(rec.EditMode)); err != nil {
				return err
			}
			if err := binary.Write(w, byteOrder, rec.DensityDelta); err != nil {
				return err
			}
			return binary.Write(w, byteOrder, rec.BrushMaterialID)
		},
	},
}

// Save writes every non-empty chunk's edit layer in the bit-exact binary
// format, always at currentVersion. Chunks are written in ascending
// (X,Y,Z) order for a deterministic byte stream.
func (m *Manager) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	var chunkCoords []coords.ChunkCoord
	for c, layer := range m.layers {
		if !layer.IsEmpty() {
			chunkCoords = append(chunkCoords, c)
		}
	}
	sort.Slice(chunkCoords, func(i, j int) bool {
		a, b := chunkCoords[i], chunkCoords[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})

	if err := binary.Write(bw, byteOrder, veTIMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, byteOrder, currentVersion); err != nil {
		return err
	}
	if err := binary.Write(bw, byteOrder, int32(len(chunkCoords))); err != nil {
		return err
	}

	fields := versionTable[currentVersion]

	for _, c := range chunkCoords {
		layer := m.layers[c]
		if err := writeChunkCoord(bw, c); err != nil {
			return err
		}
		if err := binary.Write(bw, byteOrder, int32(layer.EditCount())); err != nil {
			return err
		}

		var indices []int
		for idx := range layer.Edits {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		for _, idx := range indices {
			rec := layer.Edits[idx]
			if err := writeLocalPosition(bw, rec.LocalPosition); err != nil {
				return err
			}
			if err := fields.writePrefix(bw, rec); err != nil {
				return err
			}
			if err := writeVoxelBytes(bw, rec.NewData); err != nil {
				return err
			}
			if err := writeVoxelBytes(bw, rec.OriginalData); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// Load replaces the manager's entire edit state with the contents of r.
// On any error the manager's state is left unchanged. A System-sourced
// edit event is published for every chunk affected by a successful load.
func (m *Manager) Load(r io.Reader) error {
	br := bufio.NewReader(r)

	var magic uint32
	if err := binary.Read(br, byteOrder, &magic); err != nil {
		return fmt.Errorf("%w: reading magic: %v", engerr.ErrIOError, err)
	}
	if magic != veTIMagic {
		return fmt.Errorf("%w: bad magic %#x", engerr.ErrBadInput, magic)
	}

	var version uint32
	if err := binary.Read(br, byteOrder, &version); err != nil {
		return fmt.Errorf("%w: reading version: %v", engerr.ErrIOError, err)
	}
	fields, ok := versionTable[version]
	if !ok {
		return fmt.Errorf("%w: unsupported version %d", engerr.ErrBadInput, version)
	}

	var chunkCount int32
	if err := binary.Read(br, byteOrder, &chunkCount); err != nil {
		return fmt.Errorf("%w: reading chunk count: %v", engerr.ErrIOError, err)
	}
	if chunkCount < 0 {
		return fmt.Errorf("%w: negative chunk count %d", engerr.ErrBadInput, chunkCount)
	}

	newLayers := make(map[coords.ChunkCoord]*ChunkEditLayer, chunkCount)
	var affected []coords.ChunkCoord

	for i := int32(0); i < chunkCount; i++ {
		chunkCoord, err := readChunkCoord(br)
		if err != nil {
			return fmt.Errorf("%w: reading chunk coord: %v", engerr.ErrIOError, err)
		}
		var editCount int32
		if err := binary.Read(br, byteOrder, &editCount); err != nil {
			return fmt.Errorf("%w: reading edit count: %v", engerr.ErrIOError, err)
		}
		if editCount < 0 {
			return fmt.Errorf("%w: negative edit count %d", engerr.ErrBadInput, editCount)
		}

		layer := newChunkEditLayer(chunkCoord, m.chunkSize)
		timestamp := m.now()

		for e := int32(0); e < editCount; e++ {
			local, err := readLocalPosition(br)
			if err != nil {
				return fmt.Errorf("%w: reading local position: %v", engerr.ErrIOError, err)
			}

			var mode EditMode
			var delta int32
			var material uint8
			if fields.hasPrefix {
				mode, delta, material, err = fields.readPrefix(br)
				if err != nil {
					return fmt.Errorf("%w: reading version fields: %v", engerr.ErrIOError, err)
				}
			}

			newData, err := readVoxelBytes(br)
			if err != nil {
				return fmt.Errorf("%w: reading new_data: %v", engerr.ErrIOError, err)
			}
			if !fields.hasPrefix {
				mode, delta, material = fields.synthesize(newData)
			}
			original, err := readVoxelBytes(br)
			if err != nil {
				return fmt.Errorf("%w: reading original_data: %v", engerr.ErrIOError, err)
			}

			idx := coords.VoxelIndex(local, m.chunkSize)
			layer.Edits[idx] = EditRecord{
				LocalPosition:   local,
				NewData:         newData,
				OriginalData:    original,
				EditMode:        mode,
				DensityDelta:    delta,
				BrushMaterialID: material,
				Timestamp:       timestamp,
			}
		}

		newLayers[chunkCoord] = layer
		if !layer.IsEmpty() {
			affected = append(affected, chunkCoord)
		}
	}

	m.layers = newLayers
	m.undoStack = nil
	m.redoStack = nil
	m.current = nil
	m.publishUndoRedoChanged()
	for _, c := range affected {
		m.publishEdit(c, EditSourceSystem, mgl32.Vec3{}, 0)
	}
	return nil
}

func writeChunkCoord(w io.Writer, c coords.ChunkCoord) error {
	if err := binary.Write(w, byteOrder, c.X); err != nil {
		return err
	}
	if err := binary.Write(w, byteOrder, c.Y); err != nil {
		return err
	}
	return binary.Write(w, byteOrder, c.Z)
}

func readChunkCoord(r io.Reader) (coords.ChunkCoord, error) {
	var c coords.ChunkCoord
	if err := binary.Read(r, byteOrder, &c.X); err != nil {
		return c, err
	}
	if err := binary.Read(r, byteOrder, &c.Y); err != nil {
		return c, err
	}
	if err := binary.Read(r, byteOrder, &c.Z); err != nil {
		return c, err
	}
	return c, nil
}

func writeLocalPosition(w io.Writer, l coords.LocalVoxel) error {
	if err := binary.Write(w, byteOrder, l.X); err != nil {
		return err
	}
	if err := binary.Write(w, byteOrder, l.Y); err != nil {
		return err
	}
	return binary.Write(w, byteOrder, l.Z)
}

func readLocalPosition(r io.Reader) (coords.LocalVoxel, error) {
	var l coords.LocalVoxel
	if err := binary.Read(r, byteOrder, &l.X); err != nil {
		return l, err
	}
	if err := binary.Read(r, byteOrder, &l.Y); err != nil {
		return l, err
	}
	if err := binary.Read(r, byteOrder, &l.Z); err != nil {
		return l, err
	}
	return l, nil
}

func writeVoxelBytes(w io.Writer, v voxel.Voxel) error {
	b := v.Bytes()
	_, err := w.Write(b[:])
	return err
}

func readVoxelBytes(r io.Reader) (voxel.Voxel, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return voxel.Voxel{}, err
	}
	return voxel.FromBytes(b), nil
}

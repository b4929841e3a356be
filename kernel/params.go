// Package kernel is the single description of the host/device boundary of
// the two update kernels: the Params record, the nine-slot binding contract,
// the per-half-step binding plans, workgroup sizing, and the kernel sources
// generated from them. Host packing and kernel-side declarations are both
// produced from the tables in this package so they cannot drift.
package kernel

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/openfluke/yee/grid"
)

// ScalarType is the type of one Params field on the device.
type ScalarType int

const (
	U32 ScalarType = iota
	F32
)

func (t ScalarType) wgsl() string {
	if t == U32 {
		return "u32"
	}
	return "f32"
}

func (t ScalarType) opencl() string {
	if t == U32 {
		return "uint"
	}
	return "float"
}

// ParamField is one 4-byte member of the uniform record.
type ParamField struct {
	Name    string
	Type    ScalarType
	Padding bool
	bits    func(Params) uint32
}

// ParamsSchema is the uniform record, in device order. Every member is four
// bytes, so offsets are 4*index and the record is 16-byte aligned.
var ParamsSchema = []ParamField{
	{Name: "nx", Type: U32, bits: func(p Params) uint32 { return p.Nx }},
	{Name: "ny", Type: U32, bits: func(p Params) uint32 { return p.Ny }},
	{Name: "nz", Type: U32, bits: func(p Params) uint32 { return p.Nz }},
	{Name: "_pad0", Type: U32, Padding: true},
	{Name: "inv_dx", Type: F32, bits: func(p Params) uint32 { return math.Float32bits(p.InvDx) }},
	{Name: "inv_dy", Type: F32, bits: func(p Params) uint32 { return math.Float32bits(p.InvDy) }},
	{Name: "inv_dz", Type: F32, bits: func(p Params) uint32 { return math.Float32bits(p.InvDz) }},
	{Name: "_pad1", Type: F32, Padding: true},
}

// ParamsSize is the packed size of Params in bytes.
var ParamsSize = 4 * len(ParamsSchema)

// Params is the host view of the uniform block.
type Params struct {
	Nx, Ny, Nz          uint32
	InvDx, InvDy, InvDz float32
}

// NewParams derives Params from a grid.
func NewParams(g grid.Grid) (Params, error) {
	if err := g.Validate(); err != nil {
		return Params{}, err
	}
	if uint64(g.Cells()) > math.MaxUint32 {
		return Params{}, fmt.Errorf("grid %s exceeds 32-bit cell indexing", g)
	}
	ix, iy, iz := g.InvSpacing()
	return Params{
		Nx: uint32(g.Nx), Ny: uint32(g.Ny), Nz: uint32(g.Nz),
		InvDx: ix, InvDy: iy, InvDz: iz,
	}, nil
}

// Bytes packs p little-endian in schema order, padding zeroed.
func (p Params) Bytes() []byte {
	out := make([]byte, ParamsSize)
	for i, f := range ParamsSchema {
		if f.Padding {
			continue
		}
		binary.LittleEndian.PutUint32(out[4*i:], f.bits(p))
	}
	return out
}

// UnpackParams is the inverse of Bytes.
func UnpackParams(b []byte) (Params, error) {
	if len(b) != ParamsSize {
		return Params{}, fmt.Errorf("params record is %d bytes, want %d", len(b), ParamsSize)
	}
	var p Params
	for i, f := range ParamsSchema {
		v := binary.LittleEndian.Uint32(b[4*i:])
		switch f.Name {
		case "nx":
			p.Nx = v
		case "ny":
			p.Ny = v
		case "nz":
			p.Nz = v
		case "inv_dx":
			p.InvDx = math.Float32frombits(v)
		case "inv_dy":
			p.InvDy = math.Float32frombits(v)
		case "inv_dz":
			p.InvDz = math.Float32frombits(v)
		}
	}
	return p, nil
}

// ParamsWGSL is the WGSL struct declaration for the record.
func ParamsWGSL() string {
	var b strings.Builder
	b.WriteString("struct Params {\n")
	for _, f := range ParamsSchema {
		fmt.Fprintf(&b, "    %s : %s,\n", f.Name, f.Type.wgsl())
	}
	b.WriteString("}\n")
	return b.String()
}

// ParamsOpenCL is the OpenCL C typedef for the record.
func ParamsOpenCL() string {
	var b strings.Builder
	b.WriteString("typedef struct {\n")
	for _, f := range ParamsSchema {
		fmt.Fprintf(&b, "    %s %s;\n", f.Type.opencl(), f.Name)
	}
	b.WriteString("} Params;\n")
	return b.String()
}

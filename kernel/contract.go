package kernel

import (
	"errors"
	"fmt"

	"github.com/openfluke/yee/grid"
)

var (
	// ErrLayoutMismatch means a kernel declares bindings that differ from
	// the contract.
	ErrLayoutMismatch = errors.New("kernel binding layout mismatch")
	// ErrAliasing means a binding plan puts one buffer in two roles.
	ErrAliasing = errors.New("buffer bound as both input and output")
	// ErrShader means the kernel source failed to compile.
	ErrShader = errors.New("kernel source invalid")
)

// Role is what a binding slot is used for.
type Role int

const (
	RoleParams Role = iota
	RoleInput
	RoleOutput
	RoleCoefficient
)

func (r Role) String() string {
	switch r {
	case RoleParams:
		return "params"
	case RoleInput:
		return "input"
	case RoleOutput:
		return "output"
	case RoleCoefficient:
		return "coefficient"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Space is the WGSL address space the role is declared in.
func (r Role) Space() string {
	if r == RoleParams {
		return "uniform"
	}
	return "storage"
}

// Access is the WGSL access mode; empty for uniforms.
func (r Role) Access() string {
	switch r {
	case RoleParams:
		return ""
	case RoleOutput:
		return "read_write"
	}
	return "read"
}

// Slot is one entry of the bind group.
type Slot struct {
	Binding uint32
	Role    Role
}

// Contract is shared by both kernels so a single bind group layout serves
// both bind groups: params, three read-only fields, three read-write
// fields, two read-only coefficients.
var Contract = [9]Slot{
	{0, RoleParams},
	{1, RoleInput}, {2, RoleInput}, {3, RoleInput},
	{4, RoleOutput}, {5, RoleOutput}, {6, RoleOutput},
	{7, RoleCoefficient}, {8, RoleCoefficient},
}

// Coef names one of the four coefficient maps.
type Coef int

const (
	CA Coef = iota
	CB
	CP
	CQ
)

var coefNames = [...]string{"ca", "cb", "cp", "cq"}

func (c Coef) String() string {
	if c < CA || c > CQ {
		return fmt.Sprintf("coef(%d)", int(c))
	}
	return coefNames[c]
}

// Half selects one of the two half-step kernels.
type Half int

const (
	HalfH Half = iota // reads E, writes H, uses CP/CQ
	HalfE             // reads H, writes E, uses CA/CB
)

// Halves is the order both kernels run within a step.
var Halves = [...]Half{HalfH, HalfE}

func (h Half) String() string {
	if h == HalfH {
		return "update_h"
	}
	return "update_e"
}

// Inputs are the fields the half reads.
func (h Half) Inputs() [3]grid.Component {
	if h == HalfH {
		return [3]grid.Component{grid.Ex, grid.Ey, grid.Ez}
	}
	return [3]grid.Component{grid.Hx, grid.Hy, grid.Hz}
}

// Outputs are the fields the half updates in place.
func (h Half) Outputs() [3]grid.Component {
	if h == HalfH {
		return [3]grid.Component{grid.Hx, grid.Hy, grid.Hz}
	}
	return [3]grid.Component{grid.Ex, grid.Ey, grid.Ez}
}

// Coefficients are the decay and curl factors the half multiplies by.
func (h Half) Coefficients() [2]Coef {
	if h == HalfH {
		return [2]Coef{CP, CQ}
	}
	return [2]Coef{CA, CB}
}

// Resource identifies the buffer wired to a slot.
type Resource struct {
	Role  Role
	Field grid.Component // RoleInput, RoleOutput
	Coef  Coef           // RoleCoefficient
}

// Name is the identifier the resource is declared under in kernel source.
func (r Resource) Name() string {
	switch r.Role {
	case RoleParams:
		return "params"
	case RoleCoefficient:
		return r.Coef.String()
	}
	return r.Field.String()
}

// Plan is the concrete wiring of one bind group.
type Plan struct {
	Half      Half
	Resources [len(Contract)]Resource
}

// PlanFor builds the binding plan of a half-step.
func PlanFor(h Half) Plan {
	p := Plan{Half: h}
	p.Resources[0] = Resource{Role: RoleParams}
	for i, c := range h.Inputs() {
		p.Resources[1+i] = Resource{Role: RoleInput, Field: c}
	}
	for i, c := range h.Outputs() {
		p.Resources[4+i] = Resource{Role: RoleOutput, Field: c}
	}
	for i, c := range h.Coefficients() {
		p.Resources[7+i] = Resource{Role: RoleCoefficient, Coef: c}
	}
	return p
}

// Validate checks the plan follows Contract and that no field is bound
// read-only and read-write at once.
func (p Plan) Validate() error {
	seen := make(map[grid.Component]Role)
	for i, r := range p.Resources {
		if r.Role != Contract[i].Role {
			return fmt.Errorf("%w: %s binding %d is %s, contract wants %s",
				ErrLayoutMismatch, p.Half, Contract[i].Binding, r.Role, Contract[i].Role)
		}
		if r.Role != RoleInput && r.Role != RoleOutput {
			continue
		}
		if prev, ok := seen[r.Field]; ok {
			return fmt.Errorf("%w: %s binds %s as %s and %s", ErrAliasing, p.Half, r.Field, prev, r.Role)
		}
		seen[r.Field] = r.Role
	}
	return nil
}

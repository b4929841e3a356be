package kernel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gogpu/naga"
)

var (
	bindingRe   = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:`)
	workgroupRe = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?(?:,\s*(\d+)\s*)?\)`)
)

// Declared is one binding as a shader source declares it.
type Declared struct {
	Group   uint32
	Binding uint32
	Space   string // "uniform" or "storage"
	Access  string // "read", "read_write", or "" for uniforms
	Name    string
}

// Reflect lists the bindings a WGSL source declares, in source order.
func Reflect(src string) []Declared {
	var out []Declared
	for _, m := range bindingRe.FindAllStringSubmatch(src, -1) {
		g, _ := strconv.ParseUint(m[1], 10, 32)
		b, _ := strconv.ParseUint(m[2], 10, 32)
		d := Declared{Group: uint32(g), Binding: uint32(b), Name: m[4]}
		parts := strings.Split(m[3], ",")
		d.Space = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			d.Access = strings.TrimSpace(parts[1])
		}
		if d.Space == "storage" && d.Access == "" {
			d.Access = "read"
		}
		out = append(out, d)
	}
	return out
}

// ReflectWorkgroup returns the @workgroup_size of a WGSL source; missing
// axes default to 1.
func ReflectWorkgroup(src string) (Workgroup, bool) {
	m := workgroupRe.FindStringSubmatch(src)
	if m == nil {
		return Workgroup{}, false
	}
	axis := func(s string) uint32 {
		if s == "" {
			return 1
		}
		v, _ := strconv.ParseUint(s, 10, 32)
		return uint32(v)
	}
	return Workgroup{X: axis(m[1]), Y: axis(m[2]), Z: axis(m[3])}, true
}

// CheckLayout compares the declared bindings of src against Contract and
// the workgroup extent the host will dispatch with.
func CheckLayout(src string, wg Workgroup) error {
	decls := Reflect(src)
	if len(decls) != len(Contract) {
		return fmt.Errorf("%w: shader declares %d bindings, contract has %d", ErrLayoutMismatch, len(decls), len(Contract))
	}
	byBinding := make(map[uint32]Declared, len(decls))
	for _, d := range decls {
		if d.Group != 0 {
			return fmt.Errorf("%w: %s is in group %d, contract uses group 0", ErrLayoutMismatch, d.Name, d.Group)
		}
		if _, dup := byBinding[d.Binding]; dup {
			return fmt.Errorf("%w: binding %d declared twice", ErrLayoutMismatch, d.Binding)
		}
		byBinding[d.Binding] = d
	}
	for _, slot := range Contract {
		d, ok := byBinding[slot.Binding]
		if !ok {
			return fmt.Errorf("%w: binding %d (%s) not declared", ErrLayoutMismatch, slot.Binding, slot.Role)
		}
		if d.Space != slot.Role.Space() || d.Access != slot.Role.Access() {
			return fmt.Errorf("%w: binding %d %q is var<%s,%s>, contract wants %s (var<%s,%s>)",
				ErrLayoutMismatch, slot.Binding, d.Name, d.Space, d.Access, slot.Role, slot.Role.Space(), slot.Role.Access())
		}
	}
	got, ok := ReflectWorkgroup(src)
	if !ok {
		return fmt.Errorf("%w: no @workgroup_size", ErrLayoutMismatch)
	}
	if got != wg {
		return fmt.Errorf("%w: shader workgroup %s, dispatch assumes %s", ErrLayoutMismatch, got, wg)
	}
	return nil
}

// Verify runs CheckLayout and then compiles src host-side, so a broken
// kernel fails before any device object exists.
func Verify(src string, wg Workgroup) error {
	if err := CheckLayout(src, wg); err != nil {
		return err
	}
	if _, err := naga.Compile(src); err != nil {
		return fmt.Errorf("%w: %v", ErrShader, err)
	}
	return nil
}

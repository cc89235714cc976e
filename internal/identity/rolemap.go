// Package identity maps market role functions to the application role ids
// registered with the external identity provider.
package identity

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"marketparticipant/internal/marketrole"
	dErrors "marketparticipant/pkg/domain-errors"
)

//go:embed roles.yaml
var defaultRoles []byte

type roleFile struct {
	Roles map[string]string `yaml:"roles"`
}

// RoleMap is a read-only, complete mapping built once at startup.
type RoleMap struct {
	byFunction map[marketrole.EicFunction]uuid.UUID
	byRole     map[uuid.UUID]marketrole.EicFunction
}

// Default returns the role map compiled into the binary.
func Default() (*RoleMap, error) {
	return Parse(defaultRoles)
}

// MustDefault is Default for wiring code. The compiled map is validated by
// tests, so a failure here means a broken build.
func MustDefault() *RoleMap {
	m, err := Default()
	if err != nil {
		panic(fmt.Sprintf("identity: compiled role map: %v", err))
	}
	return m
}

// Load reads a role map file. An empty path selects the compiled default.
func Load(path string) (*RoleMap, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open role map: %w", err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read role map: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a role map. Every function must map to a
// distinct, well-formed role id and unknown functions are rejected.
func Parse(b []byte) (*RoleMap, error) {
	var file roleFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode role map")
	}

	m := &RoleMap{
		byFunction: make(map[marketrole.EicFunction]uuid.UUID, len(file.Roles)),
		byRole:     make(map[uuid.UUID]marketrole.EicFunction, len(file.Roles)),
	}
	for name, raw := range file.Roles {
		f := marketrole.EicFunction(name)
		if !f.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "role map names unknown function %q", name)
		}
		roleID, err := uuid.Parse(raw)
		if err != nil || roleID == uuid.Nil {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "role map has invalid role id for %s", name)
		}
		if other, dup := m.byRole[roleID]; dup {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "role id %s is mapped to both %s and %s", roleID, other, f)
		}
		m.byFunction[f] = roleID
		m.byRole[roleID] = f
	}
	for _, f := range marketrole.AllFunctions {
		if _, ok := m.byFunction[f]; !ok {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "role map is missing function %s", f)
		}
	}
	return m, nil
}

// RoleID returns the application role id of f.
func (m *RoleMap) RoleID(f marketrole.EicFunction) (uuid.UUID, error) {
	roleID, ok := m.byFunction[f]
	if !ok {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvariantViolation, "no role id for function %s", f)
	}
	return roleID, nil
}

// Function resolves an application role id back to its function.
func (m *RoleMap) Function(roleID uuid.UUID) (marketrole.EicFunction, bool) {
	f, ok := m.byRole[roleID]
	return f, ok
}

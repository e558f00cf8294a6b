package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/itaame/MCC-COMMS/types"
)

// DefaultRole is used when no role is configured.
const DefaultRole = "FLIGHT"

// KnownRoles lists the console roles that ship with a catalog.
var KnownRoles = []string{"FLIGHT", "CAPCOM", "FAO", "BME", "CPOO", "SCIENCE", "EVA"}

// File reads the catalog for one console role from disk.
//
// The file is <dir>/loops_<ROLE>.txt and holds a JSON array of loop
// objects. Comments and trailing commas are accepted.
type File struct {
	dir  string
	role string
}

var _ types.ChannelSource = (*File)(nil)

// NewFile creates a file source.
//
// Parameters:
//   - dir: Directory holding the loops_<ROLE>.txt files
//   - role: Console role, upper-cased; empty means DefaultRole
//
// Returns:
//   - *File: Source for that role
func NewFile(dir, role string) *File {
	return &File{dir: dir, role: NormalizeRole(role)}
}

// NormalizeRole upper-cases role and substitutes DefaultRole for "".
func NormalizeRole(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		return DefaultRole
	}

	return role
}

// IsKnownRole reports whether role is one of KnownRoles.
func IsKnownRole(role string) bool {
	role = NormalizeRole(role)
	for _, r := range KnownRoles {
		if r == role {
			return true
		}
	}

	return false
}

// Path returns the catalog file path.
func (f *File) Path() string {
	return filepath.Join(f.dir, "loops_"+f.role+".txt")
}

// Role returns the normalized role.
func (f *File) Role() string {
	return f.role
}

// ListChannels reads and parses the catalog file.
//
// Returns:
//   - []types.Channel: Channels in file order
//   - error: File unreadable or not a JSON array of loop objects
func (f *File) ListChannels(_ context.Context) ([]types.Channel, error) {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path(), err)
	}

	channels, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path(), err)
	}

	return channels, nil
}

// Parse strips JSONC comments and trailing commas from data and decodes
// the loop array.
func Parse(data []byte) ([]types.Channel, error) {
	var channels []types.Channel
	if err := json.Unmarshal(jsonc.ToJSON(data), &channels); err != nil {
		return nil, fmt.Errorf("parsing loop catalog: %w", err)
	}

	return channels, nil
}

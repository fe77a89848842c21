package types

import "fmt"

// PluginType is a plugin's role in the pipeline, one of {Frontend,
// Operator, Backend} (spec.md §3).
type PluginType int

const (
	Frontend PluginType = iota
	Operator
	Backend
)

func (t PluginType) String() string {
	switch t {
	case Frontend:
		return "frontend"
	case Operator:
		return "operator"
	case Backend:
		return "backend"
	default:
		return "unknown"
	}
}

// Metadata is PluginMetadata (spec.md §3): {name, author, version},
// immutable after construction. Mirrors
// dqcsim/src/common/types/plugin_metadata.rs, including its Display impl
// (supplemented feature, see SPEC_FULL.md).
type Metadata struct {
	Name    string `json:"name" cbor:"name"`
	Author  string `json:"author" cbor:"author"`
	Version string `json:"version" cbor:"version"`
}

// NewMetadata constructs a Metadata record.
func NewMetadata(name, author, version string) Metadata {
	return Metadata{Name: name, Author: author, Version: version}
}

func (m Metadata) String() string {
	return fmt.Sprintf("%s version %s by %s", m.Name, m.Version, m.Author)
}

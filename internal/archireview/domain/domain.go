package domain

import "strconv"

type NodeKind string

const (
	NodeKindFile   NodeKind = "File"
	NodeKindType   NodeKind = "Type"
	NodeKindMember NodeKind = "Member"
	NodeKindModule NodeKind = "Module" // import target outside the project
)

type EdgeType string

const (
	EdgeTypeDeclares EdgeType = "DECLARES" // File -> Type, File -> Member, Type -> Member
	EdgeTypeImports  EdgeType = "IMPORTS"  // File -> File, File -> Module
)

type Node struct {
	ID         string                 `json:"id"`
	Kind       NodeKind               `json:"kind"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

type Edge struct {
	SourceID string   `json:"source_id"`
	TargetID string   `json:"target_id"`
	Type     EdgeType `json:"type"`
}

// Property keys shared by the indexer and its readers.
const (
	PropPath     = "path"
	PropLanguage = "language"
	PropName     = "name"
	PropOwner    = "owner"
	PropLine     = "line"
	PropLOC      = "loc"
	PropImports  = "imports"
	PropMI       = "maintainability_index"
	PropCC       = "cyclomatic"
)

func FileID(path string) string   { return "file:" + path }
func ModuleID(path string) string { return "module:" + path }

func TypeID(path, name string) string { return "type:" + path + "#" + name }

func MemberID(path, owner, name string, line int) string {
	if owner != "" {
		name = owner + "." + name
	}
	return "member:" + path + "#" + name + ":" + strconv.Itoa(line)
}

// String returns a string property or "".
func (n *Node) String(key string) string {
	if v, ok := n.Properties[key].(string); ok {
		return v
	}
	return ""
}

// Int returns a numeric property as int. Properties read back from the
// store are JSON numbers and decode as float64.
func (n *Node) Int(key string) int {
	switch v := n.Properties[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Float returns a numeric property as float64.
func (n *Node) Float(key string) float64 {
	switch v := n.Properties[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return 0
}

// Strings returns a string list property. Lists read back from the store
// decode as []interface{}.
func (n *Node) Strings(key string) []string {
	switch v := n.Properties[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

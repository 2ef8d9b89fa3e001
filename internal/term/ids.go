package term

import "strings"

// trimIdentifier strips surrounding whitespace but preserves case; this is
// the only normalization SymbolId/EntityId components ever receive -
// they are explicitly exempt from the text-normalization pipeline.
func trimIdentifier(s string) string { return strings.TrimSpace(s) }

// NewSymbolId builds a SymbolId, trimming whitespace from both parts.
func NewSymbolId(namespace, name string) SymbolId {
	return SymbolId{Namespace: trimIdentifier(namespace), Name: trimIdentifier(name)}
}

// NewEntityId builds an EntityId, trimming whitespace from all parts.
func NewEntityId(source, localID, version string) EntityId {
	return EntityId{Source: trimIdentifier(source), LocalID: trimIdentifier(localID), Version: trimIdentifier(version)}
}

func (s SymbolId) String() string {
	return s.Namespace + ":" + s.Name
}

func (e EntityId) String() string {
	if e.Version == "" {
		return e.Source + "/" + e.LocalID
	}
	return e.Source + "/" + e.LocalID + "@" + e.Version
}

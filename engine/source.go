package engine

import "github.com/sonigraph/sonify"

type (
	// Source is where the current sequence comes from: either a
	// *FunctionSource or a *TableSource. The model holds exactly one of them;
	// switching to the other kind discards the previous one.
	Source interface {
		Kind() SourceKind
	}

	// FunctionSource samples Expression over Domain.
	FunctionSource struct {
		Expression string
		Domain     sonify.DomainSpec
		Preset     string `yaml:",omitempty"` // id of the preset it was loaded from, if any
	}

	// TableSource takes x and y from two columns of an imported table.
	TableSource struct {
		Table   sonify.Table
		XColumn int
		YColumn int
	}

	SourceKind int
)

const (
	FunctionKind SourceKind = iota
	TableKind
)

func (*FunctionSource) Kind() SourceKind { return FunctionKind }
func (*TableSource) Kind() SourceKind    { return TableKind }

func (k SourceKind) String() string {
	if k == TableKind {
		return "table"
	}
	return "function"
}

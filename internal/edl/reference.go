package edl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cutagent/internal/services"
)

const (
	refPrefix      = "$"
	inputRefPrefix = "$input."
)

// RefKind classifies a reference-bearing field value.
type RefKind int

const (
	// RefPath is a literal filesystem path.
	RefPath RefKind = iota
	// RefInput is $input.N.
	RefInput
	// RefOp is $N, the output of operation N.
	RefOp
	// RefName is $name, the output of the operation whose id is name.
	RefName
)

func (k RefKind) String() string {
	switch k {
	case RefInput:
		return "input"
	case RefOp:
		return "operation"
	case RefName:
		return "named"
	default:
		return "path"
	}
}

// Ref is a classified reference.
type Ref struct {
	Kind  RefKind
	Index int
	Name  string
	Raw   string
}

// ParseRef classifies value. The forms are mutually exclusive: $input.<digits>,
// then $<digits>, then $<name> where name does not start with a digit, and
// anything else is a literal path.
func ParseRef(value string) Ref {
	ref := Ref{Kind: RefPath, Raw: value}
	if !strings.HasPrefix(value, refPrefix) {
		return ref
	}
	if rest, ok := strings.CutPrefix(value, inputRefPrefix); ok && isDigits(rest) {
		if n, err := strconv.Atoi(rest); err == nil {
			ref.Kind, ref.Index = RefInput, n
			return ref
		}
	}
	rest := value[len(refPrefix):]
	if isDigits(rest) {
		if n, err := strconv.Atoi(rest); err == nil {
			ref.Kind, ref.Index = RefOp, n
		}
		return ref
	}
	if rest != "" && (rest[0] < '0' || rest[0] > '9') {
		ref.Kind, ref.Name = RefName, rest
	}
	return ref
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Resolution is a reference resolved against a Table.
type Resolution struct {
	Ref  Ref
	Path string
	// OpIndex is the producing operation, or -1 for inputs and literal paths.
	OpIndex int
}

// Table tracks what a run has produced so far. The validator records
// placeholder paths, the executor records real scratch files; both resolve
// through the same rules.
type Table struct {
	inputs  []string
	outputs map[int]string
	names   map[string]int
}

// NewTable starts an empty table over the EDL inputs.
func NewTable(inputs []string) *Table {
	return &Table{
		inputs:  append([]string(nil), inputs...),
		outputs: make(map[int]string),
		names:   make(map[string]int),
	}
}

// Record registers the output of operation idx. It reports whether id was
// already bound to an earlier operation; the later operation wins.
func (t *Table) Record(idx int, id, path string) (duplicate bool) {
	t.outputs[idx] = path
	if id == "" {
		return false
	}
	_, duplicate = t.names[id]
	t.names[id] = idx
	return duplicate
}

// Produced reports whether operation idx has an output.
func (t *Table) Produced(idx int) bool {
	_, ok := t.outputs[idx]
	return ok
}

// Resolve maps a field value to a path.
func (t *Table) Resolve(value string) (Resolution, error) {
	ref := ParseRef(value)
	res := Resolution{Ref: ref, OpIndex: -1}
	switch ref.Kind {
	case RefInput:
		if ref.Index >= len(t.inputs) {
			return res, services.New(services.CodeInvalidReference,
				fmt.Sprintf("Input reference %s out of range (%d input(s) available)", value, len(t.inputs)),
				map[string]any{"reference": value, "input_count": len(t.inputs)})
		}
		res.Path = t.inputs[ref.Index]
	case RefOp:
		path, ok := t.outputs[ref.Index]
		if !ok {
			return res, services.New(services.CodeInvalidReference,
				fmt.Sprintf("Reference %s points to an operation that has not produced output yet", value),
				map[string]any{"reference": value, "available": t.available()})
		}
		res.Path, res.OpIndex = path, ref.Index
	case RefName:
		idx, ok := t.names[ref.Name]
		if !ok {
			return res, services.New(services.CodeInvalidReference,
				fmt.Sprintf("Reference %s does not match any earlier operation id", value),
				map[string]any{"reference": value, "available": t.available()})
		}
		res.Path, res.OpIndex = t.outputs[idx], idx
	default:
		res.Path = value
	}
	return res, nil
}

// available lists the references that currently resolve to operation outputs.
func (t *Table) available() []string {
	idx := make([]int, 0, len(t.outputs))
	for i := range t.outputs {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	refs := make([]string, 0, len(idx)+len(t.names))
	for _, i := range idx {
		refs = append(refs, refPrefix+strconv.Itoa(i))
	}
	names := make([]string, 0, len(t.names))
	for name := range t.names {
		names = append(names, refPrefix+name)
	}
	sort.Strings(names)
	return append(refs, names...)
}

package edl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"cutagent/internal/services"
)

// DefaultCodec is used when output.codec is omitted.
const DefaultCodec = "copy"

// Document is a parsed EDL.
type Document struct {
	Version    string      `json:"version"`
	Inputs     []string    `json:"inputs"`
	Operations []Operation `json:"-"`
	Output     Output      `json:"output"`
}

// Output names the final artifact.
type Output struct {
	Path  string `json:"path"`
	Codec string `json:"codec"`
}

// CopyCodec reports whether the output stream-copies instead of re-encoding.
func (o Output) CopyCodec() bool { return o.Codec == DefaultCodec }

var documentKeys = []string{"version", "inputs", "operations", "output"}

// ParseDocument decodes EDL JSON into a Document. Structural problems are
// returned as coded errors: INVALID_EDL, MISSING_FIELD or UNKNOWN_OPERATION.
func ParseDocument(raw []byte) (*Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, services.New(services.CodeInvalidEDL,
			fmt.Sprintf("Invalid EDL JSON: %v", err),
			map[string]any{"detail": err.Error()}).
			WithRecovery("Ensure the EDL is a single valid JSON object", "Run 'cutagent capabilities' to see the EDL format").
			WithCause(err)
	}
	for _, key := range documentKeys {
		if isAbsent(top[key]) {
			return nil, missingField("", key, -1)
		}
	}

	doc := &Document{}
	version, err := decodeVersion(top["version"])
	if err != nil {
		return nil, err
	}
	doc.Version = version

	if err := json.Unmarshal(top["inputs"], &doc.Inputs); err != nil {
		return nil, invalidStructure("inputs must be a list of file paths", err)
	}

	var output map[string]json.RawMessage
	if err := json.Unmarshal(top["output"], &output); err != nil {
		return nil, invalidStructure("output must be an object with 'path' and optional 'codec'", err)
	}
	if isAbsent(output["path"]) {
		return nil, missingField("", "output.path", -1)
	}
	doc.Output.Codec = DefaultCodec
	if err := json.Unmarshal(top["output"], &doc.Output); err != nil {
		return nil, invalidStructure("output.path and output.codec must be strings", err)
	}
	if doc.Output.Codec == "" {
		doc.Output.Codec = DefaultCodec
	}

	var rawOps []json.RawMessage
	if err := json.Unmarshal(top["operations"], &rawOps); err != nil {
		return nil, invalidStructure("operations must be a list of operation objects", err)
	}
	doc.Operations = make([]Operation, 0, len(rawOps))
	for i, rawOp := range rawOps {
		op, err := ParseOperation(rawOp, i)
		if err != nil {
			return nil, err
		}
		doc.Operations = append(doc.Operations, op)
	}
	return doc, nil
}

// ParseOperation decodes a single operation object. index is only used for
// error context; pass -1 when the operation is not part of a document.
func ParseOperation(raw json.RawMessage, index int) (Operation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, services.New(services.CodeInvalidEDL,
			fmt.Sprintf("Operation %d is not a JSON object", index),
			map[string]any{"index": index}).WithCause(err)
	}

	var name any
	if !isAbsent(fields["op"]) {
		_ = json.Unmarshal(fields["op"], &name)
	}
	kindName, _ := name.(string)
	spec, ok := Lookup(Kind(kindName))
	if !ok {
		return nil, services.New(services.CodeUnknownOperation,
			fmt.Sprintf("Unknown operation type: %v", describe(name)),
			map[string]any{"operation": name, "supported": KindNames()})
	}

	for _, req := range spec.Required {
		if isAbsent(fields[req]) {
			return nil, missingField(spec.Kind, req, index)
		}
	}
	if err := checkNested(spec.Kind, fields, index); err != nil {
		return nil, err
	}

	op, err := spec.decode(raw)
	if err != nil {
		return nil, services.New(services.CodeInvalidEDL,
			fmt.Sprintf("Operation %d (%s) has a field of the wrong type: %v", index, spec.Kind, err),
			map[string]any{"operation": string(spec.Kind), "index": index}).
			WithRecovery(fmt.Sprintf("Check the '%s' operation schema in 'cutagent capabilities'", spec.Kind)).
			WithCause(err)
	}
	return op, nil
}

// checkNested enforces the required keys of text entries and animation layers.
func checkNested(kind Kind, fields map[string]json.RawMessage, index int) error {
	switch kind {
	case KindText:
		var entries []map[string]json.RawMessage
		if json.Unmarshal(fields["entries"], &entries) != nil {
			return nil
		}
		for i, entry := range entries {
			if isAbsent(entry["text"]) {
				return missingField(kind, fmt.Sprintf("entries[%d].text", i), index)
			}
		}
	case KindAnimate:
		var layers []map[string]json.RawMessage
		if json.Unmarshal(fields["layers"], &layers) != nil {
			return nil
		}
		for i, layer := range layers {
			if isAbsent(layer["type"]) {
				return missingField(kind, fmt.Sprintf("layers[%d].type", i), index)
			}
			var props map[string]map[string]json.RawMessage
			if json.Unmarshal(layer["properties"], &props) != nil {
				continue
			}
			for _, name := range slices.Sorted(maps.Keys(props)) {
				prop := props[name]
				if isAbsent(prop["keyframes"]) {
					return missingField(kind, fmt.Sprintf("layers[%d].properties.%s.keyframes", i, name), index)
				}
				var kfs []map[string]json.RawMessage
				if json.Unmarshal(prop["keyframes"], &kfs) != nil {
					continue
				}
				for j, kf := range kfs {
					for _, key := range []string{"t", "value"} {
						if isAbsent(kf[key]) {
							return missingField(kind, fmt.Sprintf("layers[%d].properties.%s.keyframes[%d].%s", i, name, j, key), index)
						}
					}
				}
			}
		}
	}
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func missingField(kind Kind, field string, index int) error {
	if kind == "" {
		return services.New(services.CodeMissingField,
			fmt.Sprintf("EDL missing required field: %s", field),
			map[string]any{"missing_field": field}).
			WithRecovery("Run 'cutagent capabilities' to see the EDL format")
	}
	ctx := map[string]any{"operation": string(kind), "missing_field": field}
	if index >= 0 {
		ctx["index"] = index
	}
	return services.New(services.CodeMissingField,
		fmt.Sprintf("Operation '%s' missing required field: %s", kind, field), ctx).
		WithRecovery(
			fmt.Sprintf("Check the '%s' operation schema in 'cutagent capabilities'", kind),
			"Run 'cutagent capabilities' to see required fields for each operation",
		)
}

func invalidStructure(message string, err error) error {
	return services.New(services.CodeInvalidEDL, message, map[string]any{"detail": err.Error()}).
		WithRecovery("Run 'cutagent capabilities' to see the EDL format").
		WithCause(err)
}

func decodeVersion(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", invalidStructure("version must be a string", err)
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case float64:
		return string(bytes.TrimSpace(raw)), nil
	default:
		return "", invalidStructure("version must be a string", fmt.Errorf("got %T", v))
	}
}

func describe(v any) string {
	if v == nil {
		return "<missing>"
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

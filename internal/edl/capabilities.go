package edl

// CapabilitiesVersion is the schema version reported by capabilities.
const CapabilitiesVersion = "1.0"

// OperationCapability is the capabilities view of a registry entry.
type OperationCapability struct {
	Description  string            `json:"description"`
	Required     []string          `json:"required"`
	Fields       map[string]string `json:"fields"`
	SupportsCopy bool              `json:"supports_copy_codec"`
}

// Capabilities is the machine-readable description of everything an EDL can express.
type Capabilities struct {
	Version          string                         `json:"version"`
	Operations       map[string]OperationCapability `json:"operations"`
	OperationOrder   []string                       `json:"operation_order"`
	OperationExample map[string]any                 `json:"operation_example"`
	TimeFormats      []string                       `json:"time_formats"`
	EDLFormat        map[string]any                 `json:"edl_format"`
	Enumerations     map[string]any                 `json:"enumerations"`
	ProbeCommands    []string                       `json:"probe_commands"`
	ExitCodes        map[string]string              `json:"exit_codes"`
	ProgressOutput   map[string]any                 `json:"progress_output"`
	ValidateOutput   map[string]any                 `json:"validate_output"`
	Tips             []string                       `json:"tips"`
}

// Describe builds the capabilities document from the registry.
func Describe() Capabilities {
	ops := make(map[string]OperationCapability, len(registry))
	for _, spec := range registry {
		fields := map[string]string{"op": "'" + string(spec.Kind) + "'", "id": "str (optional name, referenced as $id)"}
		for _, f := range spec.Fields {
			fields[f.Name] = f.Type
		}
		ops[string(spec.Kind)] = OperationCapability{
			Description:  spec.Description,
			Required:     append([]string(nil), spec.Required...),
			Fields:       fields,
			SupportsCopy: spec.SupportsCopy,
		}
	}

	return Capabilities{
		Version:        CapabilitiesVersion,
		Operations:     ops,
		OperationOrder: KindNames(),
		OperationExample: map[string]any{
			"_note":   "All fields are top-level in the operation object; there is no 'params' wrapper",
			"example": map[string]any{"op": "trim", "source": "$input.0", "start": "00:00:04", "end": "00:00:12"},
		},
		TimeFormats: []string{"HH:MM:SS", "HH:MM:SS.mmm", "MM:SS", "seconds"},
		EDLFormat: map[string]any{
			"version":    "1.0",
			"inputs":     "list[str] (source file paths)",
			"operations": "list[op] (sequential operations)",
			"output":     map[string]string{"path": "str", "codec": "'copy' | codec_name"},
			"references": map[string]string{
				"$input.N": "Reference input file by index (e.g. $input.0 for the first input)",
				"$N":       "Reference output of operation N (e.g. $0 for first operation's result)",
				"$name":    "Reference output of the earlier operation whose id is name",
			},
			"edl_input_methods": []string{
				"File path: cutagent execute my_edit.json",
				"Stdin: echo '{...}' | cutagent execute -",
				"Inline: cutagent execute --edl-json '{...}'",
			},
		},
		Enumerations: map[string]any{
			"text_positions":         append(PositionPresets(), "x,y"),
			"easings":                Easings(),
			"layer_types":            LayerTypes(),
			"text_animatable_props":  AnimatableProperties(LayerText),
			"image_animatable_props": AnimatableProperties(LayerImage),
			"concat_transitions":     []string{TransitionCrossfade},
			"extract_streams":        []string{StreamAudio, StreamVideo},
		},
		ProbeCommands: []string{"probe", "keyframes"},
		ExitCodes:     map[string]string{"0": "success", "1": "validation_error", "2": "execution_error", "3": "system_error"},
		ProgressOutput: map[string]any{
			"description": "During 'execute', progress is emitted as JSONL on stderr",
			"format":      map[string]any{"progress": map[string]string{"step": "int", "total": "int", "op": "str", "status": "'running' | 'done'"}},
			"suppress":    "Use --quiet / -q to suppress progress output",
		},
		ValidateOutput: map[string]any{
			"description": "Validation includes estimated output duration when computable",
			"fields": map[string]string{
				"estimated_duration":           "float (seconds) or absent if unknown",
				"estimated_duration_formatted": "HH:MM:SS.mmm or absent if unknown",
			},
		},
		Tips: []string{
			"crossfade and fade require re-encoding; a 'copy' output codec is replaced with libx264 for them",
			"Operations needing re-encode: fade, crossfade concat, speed, mix_audio, normalize, text, animate",
			"Use 'speed' with factor <1 for slow-motion, >1 for fast-forward",
			"Use $input.0 in operations to reference the first input file",
			"Give an operation an 'id' and reference it later as $id instead of counting indices",
			"Use --edl-json to pass EDL inline without writing a temp file",
			"Use 'normalize' (target_lufs=-16) before concat to ensure consistent loudness",
			"Use 'mix_audio' with mix_level 0.1-0.2 for subtle background music",
			"Use 'volume' to boost quiet clips or reduce loud ones (gain_db in dB)",
			"Run 'cutagent validate' before 'execute' to catch errors without encoding",
		},
	}
}

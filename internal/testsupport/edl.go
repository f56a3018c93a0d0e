package testsupport

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"cutagent/internal/edl"
)

// EDL renders an EDL document. Operations are raw JSON objects.
func EDL(t testing.TB, inputs []string, output string, operations ...string) []byte {
	t.Helper()
	if inputs == nil {
		inputs = []string{}
	}
	in, err := json.Marshal(inputs)
	if err != nil {
		t.Fatalf("marshal inputs: %v", err)
	}
	out, err := json.Marshal(output)
	if err != nil {
		t.Fatalf("marshal output: %v", err)
	}
	return []byte(fmt.Sprintf(`{"version":"1.0","inputs":%s,"operations":[%s],"output":{"path":%s}}`,
		in, strings.Join(operations, ","), out))
}

// SampleOperation returns a minimal valid operation of kind reading from
// source. mix_audio, replace_audio and animate image layers reuse source as
// their second file.
func SampleOperation(kind edl.Kind, source string) string {
	src, _ := json.Marshal(source)
	switch kind {
	case edl.KindTrim:
		return fmt.Sprintf(`{"op":"trim","source":%s,"start":"1","end":"4"}`, src)
	case edl.KindSplit:
		return fmt.Sprintf(`{"op":"split","source":%s,"points":["3"]}`, src)
	case edl.KindConcat:
		return fmt.Sprintf(`{"op":"concat","segments":[%s,%s]}`, src, src)
	case edl.KindReorder:
		return fmt.Sprintf(`{"op":"reorder","segments":[%s,%s],"order":[1,0]}`, src, src)
	case edl.KindExtract:
		return fmt.Sprintf(`{"op":"extract","source":%s,"stream":"video"}`, src)
	case edl.KindFade:
		return fmt.Sprintf(`{"op":"fade","source":%s,"fade_in":1,"fade_out":1}`, src)
	case edl.KindSpeed:
		return fmt.Sprintf(`{"op":"speed","source":%s,"factor":2}`, src)
	case edl.KindMixAudio:
		return fmt.Sprintf(`{"op":"mix_audio","source":%s,"audio":%s}`, src, src)
	case edl.KindVolume:
		return fmt.Sprintf(`{"op":"volume","source":%s,"gain_db":-3}`, src)
	case edl.KindReplaceAudio:
		return fmt.Sprintf(`{"op":"replace_audio","source":%s,"audio":%s}`, src, src)
	case edl.KindNormalize:
		return fmt.Sprintf(`{"op":"normalize","source":%s}`, src)
	case edl.KindText:
		return fmt.Sprintf(`{"op":"text","source":%s,"entries":[{"text":"Hello","position":"bottom-center"}]}`, src)
	case edl.KindAnimate:
		return fmt.Sprintf(`{"op":"animate","source":%s,"layers":[`+
			`{"type":"text","text":"Hi","start":0,"end":3,"properties":{"opacity":{"keyframes":[{"t":0,"value":0},{"t":1,"value":1}]}}},`+
			`{"type":"image","path":%s,"start":1,"end":4,"properties":{"x":{"keyframes":[{"t":1,"value":0},{"t":3,"value":200}],"easing":"ease-out"}}}`+
			`]}`, src, src)
	default:
		return fmt.Sprintf(`{"op":%q,"source":%s}`, string(kind), src)
	}
}

package metadata

import (
	"encoding/json"

	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

var (
	// Ensure Metadata implements the easyjson.Marshaler interface
	_ easyjson.Marshaler = &Metadata{}
	// Ensure Metadata implements the easyjson.Unmarshaler interface
	_ easyjson.Unmarshaler = &Metadata{}
)

// MarshalEasyJSON supports easyjson.Marshaler interface
func (m *Metadata) MarshalEasyJSON(out *jwriter.Writer) {
	out.RawByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			out.RawByte(',')
		}
		out.String(k)
		out.RawByte(':')
		writeValue(out, m.values[k])
	}
	out.RawByte('}')
}

// UnmarshalEasyJSON supports easyjson.Unmarshaler interface
func (m *Metadata) UnmarshalEasyJSON(in *jlexer.Lexer) {
	*m = Metadata{values: map[string]interface{}{}}

	if in.IsNull() {
		in.Skip()
		return
	}

	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.String()
		in.WantColon()
		m.Set(key, in.Interface())
		in.WantComma()
	}
	in.Delim('}')
}

func writeValue(out *jwriter.Writer, v interface{}) {
	if m, ok := v.(easyjson.Marshaler); ok {
		m.MarshalEasyJSON(out)
		return
	}

	out.Raw(json.Marshal(v))
}

// internal/logging/mask.go
package logging

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Masker rewrites a log message before it is written.
// *masking.Engine implements it.
type Masker interface {
	Mask(message string) string
}

// MaskerFunc adapts a function to Masker.
type MaskerFunc func(string) string

// Mask calls f(message).
func (f MaskerFunc) Mask(message string) string {
	return f(message)
}

// maskFields returns fields with their values masked. The input slice is
// never modified since zap may share it between cores.
func maskFields(m Masker, fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		masked, ok := maskField(m, f)
		if !ok {
			if out != nil {
				out = append(out, f)
			}
			continue
		}
		if out == nil {
			out = make([]zapcore.Field, i, len(fields)+len(masked))
			copy(out, fields[:i])
		}
		out = append(out, masked...)
	}
	if out == nil {
		return fields
	}
	return out
}

// maskField returns the fields f is replaced with when masking changed it.
// Errors, Stringers, arrays, objects and reflected values are rendered
// through a map encoder first; an error may render as two keys.
func maskField(m Masker, f zapcore.Field) ([]zapcore.Field, bool) {
	switch f.Type {
	case zapcore.StringType:
		masked := m.Mask(f.String)
		if masked == f.String {
			return nil, false
		}
		f.String = masked
		return []zapcore.Field{f}, true

	case zapcore.ByteStringType:
		b, _ := f.Interface.([]byte)
		masked := m.Mask(string(b))
		if masked == string(b) {
			return nil, false
		}
		return []zapcore.Field{zap.ByteString(f.Key, []byte(masked))}, true

	case zapcore.ErrorType, zapcore.StringerType, zapcore.ArrayMarshalerType,
		zapcore.ObjectMarshalerType, zapcore.ReflectType:
		enc := zapcore.NewMapObjectEncoder()
		f.AddTo(enc)

		keys := make([]string, 0, len(enc.Fields))
		for k := range enc.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make([]zapcore.Field, 0, len(keys))
		changed := false
		for _, k := range keys {
			v, c := maskValue(m, enc.Fields[k])
			changed = changed || c
			out = append(out, zap.Any(k, v))
		}
		if !changed {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

// maskValue masks strings inside v. Only strings, byte slices and the
// slices and maps a map encoder produces are walked; other values, such as
// structs passed to zap.Any, are returned unchanged.
func maskValue(m Masker, v interface{}) (interface{}, bool) {
	switch v := v.(type) {
	case string:
		masked := m.Mask(v)
		return masked, masked != v
	case []byte:
		masked := m.Mask(string(v))
		return masked, masked != string(v)
	case []string:
		out := make([]string, len(v))
		changed := false
		for i, s := range v {
			out[i] = m.Mask(s)
			changed = changed || out[i] != s
		}
		return out, changed
	case []interface{}:
		out := make([]interface{}, len(v))
		changed := false
		for i, elem := range v {
			var c bool
			out[i], c = maskValue(m, elem)
			changed = changed || c
		}
		return out, changed
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		changed := false
		for k, elem := range v {
			var c bool
			out[k], c = maskValue(m, elem)
			changed = changed || c
		}
		return out, changed
	case map[string]string:
		out := make(map[string]string, len(v))
		changed := false
		for k, s := range v {
			out[k] = m.Mask(s)
			changed = changed || out[k] != s
		}
		return out, changed
	}
	return v, false
}

// MaskingEncoder wraps a zapcore.Encoder and masks each entry's message,
// and optionally string fields, before encoding.
type MaskingEncoder struct {
	zapcore.Encoder
	masker Masker
	fields bool
}

// NewMaskingEncoder wraps base so that every entry passes through masker.
func NewMaskingEncoder(base zapcore.Encoder, masker Masker, fields bool) *MaskingEncoder {
	return &MaskingEncoder{
		Encoder: base,
		masker:  masker,
		fields:  fields,
	}
}

// EncodeEntry masks the message and string fields, then encodes.
func (e *MaskingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	ent.Message = e.masker.Mask(ent.Message)
	if e.fields {
		fields = maskFields(e.masker, fields)
	}
	return e.Encoder.EncodeEntry(ent, fields)
}

// AddString masks string fields attached with Logger.With.
func (e *MaskingEncoder) AddString(key, val string) {
	if e.fields {
		val = e.masker.Mask(val)
	}
	e.Encoder.AddString(key, val)
}

// AddByteString masks byte string fields attached with Logger.With.
func (e *MaskingEncoder) AddByteString(key string, val []byte) {
	if e.fields {
		val = []byte(e.masker.Mask(string(val)))
	}
	e.Encoder.AddByteString(key, val)
}

// AddReflected masks reflected values attached with Logger.With.
func (e *MaskingEncoder) AddReflected(key string, obj interface{}) error {
	if e.fields {
		obj, _ = maskValue(e.masker, obj)
	}
	return e.Encoder.AddReflected(key, obj)
}

// AddArray renders arr, masks it and adds it as a reflected value.
func (e *MaskingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if !e.fields {
		return e.Encoder.AddArray(key, arr)
	}
	enc := zapcore.NewMapObjectEncoder()
	if err := enc.AddArray(key, arr); err != nil {
		return err
	}
	masked, _ := maskValue(e.masker, enc.Fields[key])
	return e.Encoder.AddReflected(key, masked)
}

// AddObject renders obj, masks it and adds it as a reflected value.
func (e *MaskingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if !e.fields {
		return e.Encoder.AddObject(key, obj)
	}
	enc := zapcore.NewMapObjectEncoder()
	if err := enc.AddObject(key, obj); err != nil {
		return err
	}
	masked, _ := maskValue(e.masker, enc.Fields[key])
	return e.Encoder.AddReflected(key, masked)
}

// Clone creates a copy of the encoder.
func (e *MaskingEncoder) Clone() zapcore.Encoder {
	return &MaskingEncoder{
		Encoder: e.Encoder.Clone(),
		masker:  e.masker,
		fields:  e.fields,
	}
}

// NewMaskingCore wraps core so that every entry written through it is masked.
// Use it to mask a core built elsewhere; NewLogger uses MaskingEncoder instead.
func NewMaskingCore(core zapcore.Core, masker Masker, fields bool) zapcore.Core {
	return &maskingCore{
		Core:   core,
		masker: masker,
		fields: fields,
	}
}

type maskingCore struct {
	zapcore.Core
	masker Masker
	fields bool
}

func (c *maskingCore) With(fields []zapcore.Field) zapcore.Core {
	if c.fields {
		fields = maskFields(c.masker, fields)
	}
	return &maskingCore{
		Core:   c.Core.With(fields),
		masker: c.masker,
		fields: c.fields,
	}
}

// Check registers this core, not the wrapped one, so that Write masks.
func (c *maskingCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *maskingCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	e.Message = c.masker.Mask(e.Message)
	if c.fields {
		fields = maskFields(c.masker, fields)
	}
	return c.Core.Write(e, fields)
}

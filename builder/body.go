package builder

import (
	"github.com/adamwoolhether/restbuilder/codec"
	"github.com/adamwoolhether/restbuilder/spec"
)

// encodeBody marshals the present body fields with c. A Whole field is
// the entire body. No body fields at all means no body.
func encodeBody(c codec.Codec, fields []spec.Field, values map[string]any) ([]byte, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	for _, f := range fields {
		if !f.Whole {
			continue
		}
		v, ok := values[f.Name]
		if !ok {
			return nil, nil
		}
		return marshalBody(c, v)
	}

	return marshalBody(c, bodyObject(fields, values))
}

// bodyObject collects the present fields in declaration order, so every
// codec emits keys in that order.
func bodyObject(fields []spec.Field, values map[string]any) codec.Object {
	obj := make(codec.Object, 0, len(fields))
	for _, f := range fields {
		if v, ok := values[f.Name]; ok {
			obj = append(obj, codec.Member{Key: f.Key(), Value: v})
		}
	}

	return obj
}

func marshalBody(c codec.Codec, v any) ([]byte, error) {
	b, err := c.Marshal(v)
	if err != nil {
		return nil, &BodySerializationError{Codec: c.Name(), Err: err}
	}

	return b, nil
}

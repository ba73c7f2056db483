package codec

import (
	"bytes"

	json "github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
)

// Member is one key of an Object.
type Member struct {
	Key   string
	Value any
}

// Object is a map that keeps its members in order. Keys are written
// verbatim, so any string is a valid key.
type Object []Member

// MarshalJSON implements json.Marshaler.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}

		k, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.Value)
		if err != nil {
			return nil, err
		}

		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (o Object) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(o)); err != nil {
		return err
	}

	for _, m := range o {
		if err := enc.EncodeString(m.Key); err != nil {
			return err
		}
		if err := enc.Encode(m.Value); err != nil {
			return err
		}
	}

	return nil
}

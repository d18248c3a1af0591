package admin

import "encoding/json"

// jsonCodec lets connect carry the plain request structs of this package,
// it replaces connect's protojson codec under the same name.
type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

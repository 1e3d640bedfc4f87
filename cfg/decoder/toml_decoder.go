package decoder

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"github.com/hatlonely/harvest/cfg/storage"
	"github.com/pkg/errors"
)

type TomlDecoder struct{}

func NewTomlDecoder() *TomlDecoder {
	return &TomlDecoder{}
}

func (d *TomlDecoder) Decode(data []byte) (storage.Storage, error) {
	var result map[string]any
	if _, err := toml.Decode(string(data), &result); err != nil {
		return nil, errors.Wrap(err, "decode toml failed")
	}
	return storage.NewMapStorage(normalize(result)), nil
}

func (d *TomlDecoder) Encode(s storage.Storage) ([]byte, error) {
	data, err := rawData(s)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = "  "
	if err := enc.Encode(data); err != nil {
		return nil, errors.Wrap(err, "encode toml failed")
	}
	return buf.Bytes(), nil
}

// normalize 把 toml 的 []map[string]any 统一成 []any，和其他格式保持一致
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = normalize(child)
		}
		return t
	case []map[string]any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = normalize(child)
		}
		return out
	case []any:
		for i, child := range t {
			t[i] = normalize(child)
		}
		return t
	}
	return v
}

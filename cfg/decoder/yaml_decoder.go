package decoder

import (
	"bytes"

	"github.com/hatlonely/harvest/cfg/storage"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type YamlDecoder struct{}

func NewYamlDecoder() *YamlDecoder {
	return &YamlDecoder{}
}

func (d *YamlDecoder) Decode(data []byte) (storage.Storage, error) {
	var result any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "decode yaml failed")
	}
	return storage.NewMapStorage(result), nil
}

func (d *YamlDecoder) Encode(s storage.Storage) ([]byte, error) {
	data, err := rawData(s)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return nil, errors.Wrap(err, "encode yaml failed")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encode yaml failed")
	}
	return buf.Bytes(), nil
}

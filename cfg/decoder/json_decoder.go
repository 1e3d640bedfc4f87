package decoder

import (
	"encoding/json"

	"github.com/hatlonely/harvest/cfg/storage"
	"github.com/pkg/errors"
)

type JsonDecoder struct{}

func NewJsonDecoder() *JsonDecoder {
	return &JsonDecoder{}
}

func (d *JsonDecoder) Decode(data []byte) (storage.Storage, error) {
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "decode json failed")
	}
	return storage.NewMapStorage(result), nil
}

func (d *JsonDecoder) Encode(s storage.Storage) ([]byte, error) {
	data, err := rawData(s)
	if err != nil {
		return nil, err
	}
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode json failed")
	}
	return buf, nil
}

package decoder

import (
	"github.com/hatlonely/harvest/cfg/storage"
	"github.com/hatlonely/harvest/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*JsonDecoder](NewJsonDecoder)
	ref.MustRegisterT[*YamlDecoder](NewYamlDecoder)
	ref.MustRegisterT[*TomlDecoder](NewTomlDecoder)
	ref.MustRegisterT[*IniDecoder](NewIniDecoder)
}

// Decoder 负责原始数据和 Storage 之间的转换
type Decoder interface {
	Decode(data []byte) (storage.Storage, error)
	Encode(s storage.Storage) ([]byte, error)
}

func NewDecoderWithOptions(options *ref.TypeOptions) (Decoder, error) {
	obj, err := ref.New(options.Namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}
	d, ok := obj.(Decoder)
	if !ok {
		return nil, errors.Errorf("%T is not a Decoder", obj)
	}
	return d, nil
}

// rawData 取出 Storage 中的原始数据用于编码
func rawData(s storage.Storage) (any, error) {
	if ms, ok := s.(*storage.MapStorage); ok {
		return ms.Data(), nil
	}
	var data map[string]any
	if err := s.ConvertTo(&data); err != nil {
		return nil, errors.Wrap(err, "convert storage failed")
	}
	return data, nil
}

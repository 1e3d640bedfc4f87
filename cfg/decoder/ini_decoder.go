package decoder

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hatlonely/harvest/cfg/storage"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// IniDecoder 默认分区的键放在顶层，其他分区作为一级子配置
type IniDecoder struct{}

func NewIniDecoder() *IniDecoder {
	return &IniDecoder{}
}

func (d *IniDecoder) Decode(data []byte) (storage.Storage, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "decode ini failed")
	}

	result := map[string]any{}
	for _, section := range file.Sections() {
		target := result
		if section.Name() != ini.DefaultSection {
			target = map[string]any{}
			result[section.Name()] = target
		}
		for _, key := range section.Keys() {
			target[key.Name()] = parseScalar(key.String())
		}
	}
	return storage.NewMapStorage(result), nil
}

func parseScalar(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// Encode 只支持两层结构
func (d *IniDecoder) Encode(s storage.Storage) ([]byte, error) {
	data, err := rawData(s)
	if err != nil {
		return nil, err
	}
	m, ok := data.(map[string]any)
	if !ok {
		return nil, errors.Errorf("ini requires a map at top level, got %T", data)
	}

	file := ini.Empty()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if sub, ok := m[k].(map[string]any); ok {
			section, err := file.NewSection(k)
			if err != nil {
				return nil, errors.Wrapf(err, "create section %s failed", k)
			}
			for sk, sv := range sub {
				if _, err := section.NewKey(sk, formatScalar(sv)); err != nil {
					return nil, errors.Wrapf(err, "create key %s.%s failed", k, sk)
				}
			}
			continue
		}
		if _, err := file.Section("").NewKey(k, formatScalar(m[k])); err != nil {
			return nil, errors.Wrapf(err, "create key %s failed", k)
		}
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "encode ini failed")
	}
	return buf.Bytes(), nil
}

func formatScalar(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

package cfg

import (
	"bytes"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/hatlonely/harvest/cfg/decoder"
	"github.com/hatlonely/harvest/cfg/provider"
	"github.com/hatlonely/harvest/cfg/storage"
	"github.com/hatlonely/harvest/cfg/validator"
	"github.com/hatlonely/harvest/log"
	"github.com/hatlonely/harvest/log/logger"
	"github.com/hatlonely/harvest/ref"
)

// Options 配置初始化选项
type Options struct {
	Provider ref.TypeOptions
	Decoder  ref.TypeOptions
	// 环境变量前缀，为空时不做环境变量覆盖
	EnvPrefix string
	// 为空时使用默认日志
	Logger *ref.TypeOptions
}

// Config 配置管理器，Sub 返回的子配置和根配置共享数据和监听
type Config struct {
	root *root
	key  string
}

type root struct {
	provider  provider.Provider
	decoder   decoder.Decoder
	envPrefix string
	logger    logger.Logger

	mu       sync.RWMutex
	storage  *storage.MapStorage
	handlers []keyHandler

	closeOnce sync.Once
	closeErr  error
}

type keyHandler struct {
	key string
	fn  func(*Config) error
}

func NewConfigWithOptions(options *Options) (*Config, error) {
	if options == nil {
		return nil, fmt.Errorf("options cannot be nil")
	}

	obj, err := ref.New(options.Provider.Namespace, options.Provider.Type, options.Provider.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	prov, ok := obj.(provider.Provider)
	if !ok {
		return nil, fmt.Errorf("%T does not implement Provider", obj)
	}

	dec, err := decoder.NewDecoderWithOptions(&options.Decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	r := &root{
		provider:  prov,
		decoder:   dec,
		envPrefix: options.EnvPrefix,
		logger:    l.With("component", "cfg"),
	}

	data, err := prov.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if r.storage, err = r.decode(data); err != nil {
		return nil, err
	}

	prov.OnChange(r.reload)
	if fp, ok := prov.(*provider.FileProvider); ok {
		fp.OnError(func(err error) {
			r.logger.Warn("config reload failed", "error", err)
		})
	}

	return &Config{root: r}, nil
}

// NewConfig 从文件加载配置，根据后缀选择解码器：.json .yaml/.yml .toml .ini
func NewConfig(filename string, envPrefix ...string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("filename cannot be empty")
	}

	var typ string
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		typ = "JsonDecoder"
	case ".yaml", ".yml":
		typ = "YamlDecoder"
	case ".toml":
		typ = "TomlDecoder"
	case ".ini":
		typ = "IniDecoder"
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}

	options := &Options{
		Provider: ref.TypeOptions{
			Namespace: "github.com/hatlonely/harvest/cfg/provider",
			Type:      "FileProvider",
			Options:   &provider.FileProviderOptions{FilePath: filename},
		},
		Decoder: ref.TypeOptions{
			Namespace: "github.com/hatlonely/harvest/cfg/decoder",
			Type:      typ,
		},
	}
	if len(envPrefix) > 0 {
		options.EnvPrefix = envPrefix[0]
	}
	return NewConfigWithOptions(options)
}

func (r *root) decode(data []byte) (*storage.MapStorage, error) {
	s, err := r.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	ms, ok := s.(*storage.MapStorage)
	if !ok {
		var raw any
		if err := s.ConvertTo(&raw); err != nil {
			return nil, fmt.Errorf("failed to convert config: %w", err)
		}
		ms = storage.NewMapStorage(raw)
	}
	if r.envPrefix != "" {
		ms = storage.OverlayEnv(ms, r.envPrefix, nil)
	}
	return ms, nil
}

// reload 只有 key 对应的数据发生变化才会触发对应的回调
func (r *root) reload(data []byte) error {
	// 编辑器保存时会先截断文件，空内容不触发更新
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	next, err := r.decode(data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	prev := r.storage
	r.storage = next
	handlers := append([]keyHandler(nil), r.handlers...)
	r.mu.Unlock()

	r.logger.Info("config reloaded")

	for _, h := range handlers {
		before := prev.Sub(h.key).(*storage.MapStorage).Data()
		after := next.Sub(h.key).(*storage.MapStorage).Data()
		if reflect.DeepEqual(before, after) {
			continue
		}
		if err := h.fn(&Config{root: r, key: h.key}); err != nil {
			r.logger.Warn("config change handler failed", "key", h.key, "error", err)
		}
	}
	return nil
}

func (c *Config) storage() storage.Storage {
	c.root.mu.RLock()
	defer c.root.mu.RUnlock()
	return c.root.storage.Sub(c.key)
}

// Sub 获取子配置
func (c *Config) Sub(key string) *Config {
	if key == "" {
		return c
	}
	if c.key == "" {
		return &Config{root: c.root, key: key}
	}
	if strings.HasPrefix(key, "[") {
		return &Config{root: c.root, key: c.key + key}
	}
	return &Config{root: c.root, key: c.key + "." + key}
}

// ConvertTo 转换成目标结构，设置 def 默认值并按 validate tag 校验
func (c *Config) ConvertTo(object any) error {
	if err := c.storage().ConvertTo(object); err != nil {
		return fmt.Errorf("failed to convert config %q: %w", c.key, err)
	}
	if err := validator.ValidateStruct(object); err != nil {
		return fmt.Errorf("invalid config %q: %w", c.key, err)
	}
	return nil
}

// Storage 返回当前数据的快照，可以作为 ref.TypeOptions 的 Options
func (c *Config) Storage() storage.Storage {
	return c.storage()
}

// OnChange 注册当前 key 的变更回调
func (c *Config) OnChange(fn func(*Config) error) {
	c.root.mu.Lock()
	defer c.root.mu.Unlock()
	c.root.handlers = append(c.root.handlers, keyHandler{key: c.key, fn: fn})
}

// Watch 启动监听，之前注册的 OnChange 才会被触发
func (c *Config) Watch() error {
	return c.root.provider.Watch()
}

// Close 关闭底层 provider，可以重复调用
func (c *Config) Close() error {
	c.root.closeOnce.Do(func() {
		c.root.closeErr = c.root.provider.Close()
	})
	return c.root.closeErr
}

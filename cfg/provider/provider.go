package provider

import "github.com/hatlonely/harvest/ref"

func init() {
	ref.MustRegisterT[*FileProvider](NewFileProviderWithOptions)
}

// Provider 配置数据提供者，负责读取数据和监听变更
type Provider interface {
	Load() ([]byte, error)
	// OnChange 只注册回调，Watch 之后才会触发
	OnChange(fn func(data []byte) error)
	Watch() error
	Close() error
}

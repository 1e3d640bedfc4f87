package storage

// Storage 配置数据存储接口
type Storage interface {
	// Sub 获取子配置，key 支持 "report.sources[0].type" 的写法
	Sub(key string) Storage

	// ConvertTo 将配置数据转成结构体或者 map/slice
	ConvertTo(object any) error
}

package xconf

import "errors"

var (
	// ErrEmptyPath 表示配置文件路径为空。
	ErrEmptyPath = errors.New("xconf: empty path")

	// ErrUnsupportedFormat 表示不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xconf: unsupported format")

	// ErrLoadFailed 表示配置读取失败。
	ErrLoadFailed = errors.New("xconf: load failed")

	// ErrParseFailed 表示配置解析失败。
	ErrParseFailed = errors.New("xconf: parse failed")

	// ErrInvalidConfig 表示配置校验失败。
	ErrInvalidConfig = errors.New("xconf: invalid config")
)

package xmeter

import "errors"

var (
	// ErrEmptyServiceName 表示服务名为空。
	ErrEmptyServiceName = errors.New("xmeter: empty service name")

	// ErrNotInitialized 表示指标管线尚未初始化。
	ErrNotInitialized = errors.New("xmeter: not initialized")
)

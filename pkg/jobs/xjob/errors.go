package xjob

import "errors"

var (
	// ErrEmptyServiceName 表示服务名为空。
	ErrEmptyServiceName = errors.New("xjob: empty service name")

	// ErrNilFunc 表示传入的函数为空。
	ErrNilFunc = errors.New("xjob: nil func")

	// ErrEmptyKey 表示幂等键为空。
	ErrEmptyKey = errors.New("xjob: empty idempotency key")

	// ErrHubClosed 表示状态枢纽已关闭。
	ErrHubClosed = errors.New("xjob: status hub closed")
)

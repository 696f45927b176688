package xtelemetry

import "errors"

var (
	// ErrEmptyServiceName 表示服务名为空。
	ErrEmptyServiceName = errors.New("xtelemetry: empty service name")

	// ErrNilFunc 表示传入的函数为空。
	ErrNilFunc = errors.New("xtelemetry: nil func")
)

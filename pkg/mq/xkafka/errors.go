package xkafka

import "errors"

var (
	// ErrEmptyServiceName 表示服务名为空。
	ErrEmptyServiceName = errors.New("xkafka: empty service name")

	// ErrNilConfig 表示 Kafka 配置为空。
	ErrNilConfig = errors.New("xkafka: nil config")

	// ErrNilMessage 表示待发送消息为空。
	ErrNilMessage = errors.New("xkafka: nil message")

	// ErrNilFunc 表示传入的函数为空。
	ErrNilFunc = errors.New("xkafka: nil func")

	// ErrClosed 表示生产者已关闭。
	ErrClosed = errors.New("xkafka: producer closed")

	// ErrFlushTimeout 表示关闭时仍有消息未能刷出。
	ErrFlushTimeout = errors.New("xkafka: flush timeout")
)

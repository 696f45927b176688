package xlog

import "errors"

var (
	// ErrEmptyRotationFile 表示轮转文件名为空。
	ErrEmptyRotationFile = errors.New("xlog: empty rotation filename")
)

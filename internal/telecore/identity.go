package telecore

import (
	"go.opentelemetry.io/otel/attribute"
)

// 指标标签名。所有注册表共用，保证下游查询口径一致。
const (
	LabelService   = "service"
	LabelTopic     = "topic"
	LabelJobType   = "job_type"
	LabelErrorCode = "error_code"
	LabelType      = "type"
	LabelStatus    = "status"
)

// ServiceIdentity 服务标识。
//
// 每个指标样本都会携带 service 标签（值为本标识），
// 用于在多实例共享同一 metrics 后端时区分来源。
// 初始化后不可变。
type ServiceIdentity string

// String 返回服务名。
func (s ServiceIdentity) String() string {
	return string(s)
}

// Attr 返回 service 标签对应的 OTel 属性。
func (s ServiceIdentity) Attr() attribute.KeyValue {
	return attribute.String(LabelService, string(s))
}

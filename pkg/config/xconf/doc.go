// Package xconf 提供遥测组件的配置装载。
//
// 配置文件支持 YAML 与 JSON（按扩展名检测），解析基于 koanf。
// 所有字段都有可用的默认值：空文件即是合法配置。
//
// 使用示例:
//
//	cfg, err := xconf.Load("telemetry.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	err = xtelemetry.Init(cfg.Service.Name,
//		xtelemetry.WithEndpoint(cfg.Trace.Endpoint))
package xconf

// Package mq 提供消息队列相关的子包。
//
// 子包列表：
//   - xkafka: Kafka 生产者指标注册表与带弹性策略的生产者封装
//
// 设计原则：
//   - 指标记录是旁路观测，绝不干预业务发送路径
//   - 生产者内置重试与熔断，健康状态自动上报
package mq

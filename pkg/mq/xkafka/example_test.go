package xkafka_test

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/wisey/telekit/pkg/mq/xkafka"
)

// 演示指标注册表的标准初始化与使用。
func ExampleInitProducerMetrics() {
	metrics, err := xkafka.InitProducerMetrics("order-service")
	if err != nil {
		fmt.Println("init:", err)
		return
	}

	ctx := context.Background()
	err = metrics.MeasureSendTime(ctx, "orders", func(ctx context.Context) error {
		// 实际发送逻辑
		return nil
	})
	if err != nil {
		fmt.Println("send:", err)
	}
}

// 演示带弹性策略与指标上报的生产者。
func ExampleNewProducer() {
	metrics := xkafka.ProducerMetricsInstance()

	producer, err := xkafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": "localhost:9092",
	},
		xkafka.WithProducerMetrics(metrics),
		xkafka.WithMaxRetries(5),
	)
	if err != nil {
		fmt.Println("create:", err)
		return
	}
	defer func() { _ = producer.Close() }()

	topic := "orders"
	_ = producer.Produce(context.Background(), &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          []byte(`{"order_id":"ord-1001"}`),
	})
}

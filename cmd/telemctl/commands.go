package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wisey/telekit/pkg/config/xconf"
	"github.com/wisey/telekit/pkg/jobs/xjob"
	"github.com/wisey/telekit/pkg/mq/xkafka"
	"github.com/wisey/telekit/pkg/observability/xlog"
	"github.com/wisey/telekit/pkg/observability/xmeter"
	"github.com/wisey/telekit/pkg/observability/xtelemetry"
)

// createCommands 创建子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "serve",
			Usage:  "启动指标拉取端点与任务状态推送服务",
			Action: serveAction,
		},
		{
			Name:   "check",
			Usage:  "校验配置文件",
			Action: checkAction,
		},
		{
			Name:  "scrape",
			Usage: "抓取一次指标端点并输出",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "addr",
					Usage: "指标端点地址 (host:port)",
					Value: "localhost:9464",
				},
			},
			Action: scrapeAction,
		},
	}
}

// loadConfig 装载配置；未指定路径时使用默认配置。
func loadConfig(cmd *cli.Command) (*xconf.Config, error) {
	path := cmd.String("config")
	if path == "" {
		return xconf.Default(), nil
	}
	return xconf.Load(path)
}

// setupLogger 按配置构建并安装全局日志器。
func setupLogger(cfg *xconf.Config) (func(), error) {
	logger, cleanup, err := xlog.New().
		SetLevelString(cfg.Log.Level).
		SetFormat(cfg.Log.Format).
		Build()
	if err != nil {
		return nil, err
	}
	xlog.SetDefault(logger)
	return cleanup, nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cleanup, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// 追踪与指标管线
	traceOpts := []xtelemetry.Option{
		xtelemetry.WithSamplerRatio(cfg.Trace.SamplerRatio),
		xtelemetry.WithBatchTimeout(cfg.Trace.BatchTimeout),
	}
	if cfg.Trace.Endpoint != "" {
		traceOpts = append(traceOpts, xtelemetry.WithEndpoint(cfg.Trace.Endpoint))
	}
	if err := xtelemetry.Init(cfg.Service.Name, traceOpts...); err != nil {
		return err
	}
	defer xtelemetry.Shutdown(context.Background())

	if err := xmeter.Init(cfg.Service.Name); err != nil {
		return err
	}
	defer xmeter.Shutdown(context.Background())

	// 指标注册表
	if _, err := xkafka.InitProducerMetrics(cfg.Service.Name); err != nil {
		return err
	}
	jobMetrics, err := xjob.InitJobMetrics(cfg.Service.Name)
	if err != nil {
		return err
	}

	// 任务状态推送
	hub := xjob.NewStatusHub(jobMetrics,
		xjob.WithHeartbeatInterval(cfg.Jobs.HeartbeatInterval))
	defer func() { _ = hub.Close() }()

	metricsHandler, err := xmeter.Handler()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(xmeter.MetricsPath, metricsHandler)
	mux.Handle("/ws/jobs", hub.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		xlog.Info(ctx, "telemctl: serving",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("service", cfg.Service.Name))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func checkAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		return &usageError{msg: "check 需要 --config 指定配置文件"}
	}

	cfg, err := xconf.Load(path)
	if err != nil {
		return err
	}

	fmt.Printf("配置有效: service=%s metrics=%s\n", cfg.Service.Name, cfg.Metrics.Addr)
	return nil
}

func scrapeAction(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	url := fmt.Sprintf("http://%s%s", addr, xmeter.MetricsPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telemctl: scrape %s: status %d", url, resp.StatusCode)
	}

	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}

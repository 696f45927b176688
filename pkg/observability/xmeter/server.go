package xmeter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/wisey/telekit/pkg/observability/xlog"
)

// MetricsPath 拉取端点路径。
const MetricsPath = "/metrics"

// shutdownTimeout 优雅关闭的最长等待时间。
const shutdownTimeout = 5 * time.Second

// Handler 返回 Prometheus 拉取端点的 http.Handler。
//
// 宿主已有 HTTP 服务时直接挂载本 handler 即可，无需独立端口。
// 未初始化（或使用注入 provider）时返回 ErrNotInitialized。
func Handler() (http.Handler, error) {
	p := guard.Get()
	if p == nil || p.registry == nil {
		return nil, ErrNotInitialized
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}), nil
}

// Serve 在 addr 上启动独立的指标 HTTP 服务并阻塞运行。
//
// ctx 取消时优雅关闭。宿主没有现成 HTTP 服务时使用本函数，
// 通常放在独立 goroutine 中：
//
//	go func() { _ = xmeter.Serve(ctx, ":9464") }()
func Serve(ctx context.Context, addr string) error {
	handler, err := Handler()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		xlog.Info(ctx, "xmeter: metrics server listening",
			slog.String("addr", addr), slog.String("path", MetricsPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

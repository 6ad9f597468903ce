package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/appkit/appkit/application"
	"github.com/appkit/appkit/internal/config"
)

func TestServeContextServesTodosUntilCancelled(t *testing.T) {
	logger, hook := test.NewNullLogger()
	cfg := &config.Config{
		AppName:         "todos",
		ListenHost:      "127.0.0.1",
		ListenPort:      freePort(t),
		Environment:     config.EnvDevelopment,
		BodyLimit:       config.DefaultBodyLimit,
		ShutdownTimeout: config.Duration(5 * time.Second),
		DatabasePath:    ":memory:",
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	var created, listed, docs int
	done := make(chan error, 1)
	go func() {
		done <- serveContext(ctx, cfg, logger, "", func(app *application.Application) {
			base := "http://" + app.Addr().String()

			resp, err := client.Post(base+"/todos", "application/json", strings.NewReader(`{"title":"buy milk"}`))
			if err == nil {
				created = resp.StatusCode
				_ = resp.Body.Close()
			}
			resp, err = client.Get(base + "/todos")
			if err == nil {
				listed = resp.StatusCode
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			}
			resp, err = client.Get(base + application.DocsPath)
			if err == nil {
				docs = resp.StatusCode
				_ = resp.Body.Close()
			}
			cancel()
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serveContext 返回错误: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("取消后 serveContext 未返回")
	}

	if created != http.StatusCreated || listed != http.StatusOK || docs != http.StatusOK {
		t.Fatalf("状态码异常: create=%d list=%d docs=%d", created, listed, docs)
	}

	var stopped bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "server stopped" {
			stopped = true
		}
	}
	if !stopped {
		t.Fatalf("停机后应记录 server stopped 日志")
	}
}

func TestServeContextReportsBindFailure(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("占用端口失败: %v", err)
	}
	defer occupied.Close()

	logger, _ := test.NewNullLogger()
	cfg := &config.Config{
		ListenHost:   "127.0.0.1",
		ListenPort:   occupied.Addr().(*net.TCPAddr).Port,
		Environment:  config.EnvDevelopment,
		DatabasePath: ":memory:",
	}

	err = serveContext(context.Background(), cfg, logger, "", nil)
	var bindErr *application.BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("端口占用应返回 BindError，得到 %v", err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("获取空闲端口失败: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

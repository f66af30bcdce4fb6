package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestParseLevel 测试日志级别解析
func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"未知级别默认info", "unknown", slog.LevelInfo},
		{"空字符串默认info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLevel(tt.input)
			if got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, 期望 %v", tt.input, got, tt.expected)
			}
		})
	}
}

// TestLevelTag 测试日志级别标签
func TestLevelTag(t *testing.T) {
	tests := []struct {
		name     string
		level    slog.Level
		expected string
	}{
		{"error", slog.LevelError, "ERROR"},
		{"warn", slog.LevelWarn, "WARN "},
		{"info", slog.LevelInfo, "INFO "},
		{"debug", slog.LevelDebug, "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := levelTag(tt.level)
			if got != tt.expected {
				t.Errorf("levelTag(%v) = %q, 期望 %q", tt.level, got, tt.expected)
			}
		})
	}
}

// TestFormatAttr 测试属性格式化
func TestFormatAttr(t *testing.T) {
	tests := []struct {
		name     string
		group    string
		attr     slog.Attr
		expected string
	}{
		{
			name:     "无分组",
			group:    "",
			attr:     slog.String("key", "value"),
			expected: "  key=value",
		},
		{
			name:     "有分组",
			group:    "group",
			attr:     slog.String("key", "value"),
			expected: "  group.key=value",
		},
		{
			name:     "整数值",
			group:    "",
			attr:     slog.Int("frame", 42),
			expected: "  frame=42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatAttr(tt.group, tt.attr)
			if got != tt.expected {
				t.Errorf("formatAttr(%q, %v) = %q, 期望 %q", tt.group, tt.attr, got, tt.expected)
			}
		})
	}
}

// TestConsoleHandlerEnabled 测试 consoleHandler 的级别过滤
func TestConsoleHandlerEnabled(t *testing.T) {
	h := &consoleHandler{level: slog.LevelInfo}

	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Info 级别应该被启用")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Error 级别应该被启用")
	}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Debug 级别不应该被启用")
	}
}

// TestConsoleHandlerHandle 测试 consoleHandler 的日志输出
func TestConsoleHandlerHandle(t *testing.T) {
	var buf bytes.Buffer
	h := &consoleHandler{w: &buf, level: slog.LevelDebug}

	record := slog.NewRecord(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), slog.LevelInfo, "test message", 0)
	record.AddAttrs(slog.String("key", "value"))

	err := h.Handle(context.Background(), record)
	if err != nil {
		t.Fatalf("Handle() 返回错误: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "12:00:00") {
		t.Errorf("输出应包含时间戳, 实际: %q", output)
	}
	if !strings.Contains(output, "INFO") {
		t.Errorf("输出应包含级别标签, 实际: %q", output)
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("输出应包含消息, 实际: %q", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("输出应包含属性, 实际: %q", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Errorf("输出应以换行符结尾, 实际: %q", output)
	}
}

// TestConsoleHandlerWithAttrs 测试 WithAttrs 创建新 handler
func TestConsoleHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &consoleHandler{w: &buf, level: slog.LevelDebug}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "session")})

	// 原始 handler 不应该受影响
	if len(h.attrs) != 0 {
		t.Error("原始 handler 的 attrs 不应该被修改")
	}

	record := slog.NewRecord(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), slog.LevelInfo, "Session started", 0)
	record.AddAttrs(slog.Int("frame", 7))
	if err := h2.Handle(context.Background(), record); err != nil {
		t.Fatalf("Handle() 返回错误: %v", err)
	}

	output := buf.String()
	// 预设属性在记录属性之前
	if !strings.Contains(output, "component=session  frame=7") {
		t.Errorf("输出应包含预设属性, 实际: %q", output)
	}
}

// TestConsoleHandlerWithGroup 测试 WithGroup 与嵌套分组
func TestConsoleHandlerWithGroup(t *testing.T) {
	tests := []struct {
		name   string
		groups []string
		want   string
	}{
		{"单层分组", []string{"stream"}, "stream.addr=127.0.0.1:8090"},
		{"嵌套分组", []string{"stream", "client"}, "stream.client.addr=127.0.0.1:8090"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			var h slog.Handler = &consoleHandler{w: &buf, level: slog.LevelDebug}
			for _, g := range tt.groups {
				h = h.WithGroup(g)
			}

			record := slog.NewRecord(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), slog.LevelInfo, "test", 0)
			record.AddAttrs(slog.String("addr", "127.0.0.1:8090"))
			if err := h.Handle(context.Background(), record); err != nil {
				t.Fatalf("Handle() 返回错误: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("输出应包含 %q, 实际: %q", tt.want, buf.String())
			}
		})
	}
}

// TestNewHandlerFormats 测试不同格式创建的 handler 类型与输出
func TestNewHandlerFormats(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"json", `"msg":"Asset loaded"`},
		{"text", "msg=\"Asset loaded\""},
		{"console", "INFO  Asset loaded"},
		{"", "INFO  Asset loaded"},
	}

	for _, tt := range tests {
		t.Run("format_"+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			h := newHandler(Config{Level: "debug", Format: tt.format, Output: &buf})
			if h == nil {
				t.Fatal("handler 不应为 nil")
			}
			slog.New(h).Info("Asset loaded", "asset", "trabant")
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("输出应包含 %q, 实际: %q", tt.want, buf.String())
			}
		})
	}
}

// TestNewHandlerLevelFilter 测试级别过滤
func TestNewHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	lg := slog.New(newHandler(Config{Level: "warn", Output: &buf}))

	lg.Info("hidden")
	lg.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("info 日志不应输出, 实际: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn 日志应输出, 实际: %q", buf.String())
	}
}

// TestConsoleHandlerConcurrentWrites 测试并发写入时每行完整
func TestConsoleHandlerConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	lg := slog.New(newHandler(Config{Level: "debug", Output: &buf}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				lg.Debug("tick", "worker", id, "n", j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 200 {
		t.Fatalf("期望 200 行, 实际 %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "DEBUG tick") || !strings.Contains(line, "n=") {
			t.Fatalf("日志行被截断: %q", line)
		}
	}
}

// TestOpenFile 测试日志文件创建与追加
func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "citydrive.log")

	for i := 0; i < 2; i++ {
		f, err := OpenFile(path)
		if err != nil {
			t.Fatalf("OpenFile() 返回错误: %v", err)
		}
		lg := slog.New(newHandler(Config{Level: "info", Output: f}))
		lg.Info("run", "n", i)
		if err := f.Close(); err != nil {
			t.Fatalf("Close() 返回错误: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}
	if got := strings.Count(string(data), "INFO  run"); got != 2 {
		t.Errorf("期望追加 2 行, 实际 %d: %q", got, data)
	}
}

package state

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"cvdump/config"
)

func TestContextWithEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)
	if env == nil {
		t.Fatal("EnvFromContext() returned nil")
	}
	if env.start.IsZero() {
		t.Error("Environment start time not set")
	}
	if env.CodePage != nil || env.Overwrite {
		t.Error("Fresh environment should have defaults")
	}
}

func TestEnvFromContext_Missing(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when env not in context")
		}
	}()
	EnvFromContext(context.Background())
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))

	time.Sleep(10 * time.Millisecond)
	uptime := env.Uptime()
	if uptime < 10*time.Millisecond {
		t.Errorf("Uptime() = %v, expected at least 10ms", uptime)
	}
}

func TestLocalEnv_SetCodePage(t *testing.T) {
	env := newLocalEnv()

	if err := env.SetCodePage("windows-1251"); err != nil {
		t.Fatalf("SetCodePage() error = %v", err)
	}
	if env.CodePage == nil {
		t.Fatal("CodePage was not set")
	}
	if n := env.CodePageName(); n != "windows-1251" {
		t.Errorf("CodePageName() = %q, want windows-1251", n)
	}

	if err := env.SetCodePage("no-such-charset"); err == nil {
		t.Error("Expected error for unknown character set")
	}
	if env.CodePage == nil {
		t.Error("Failed lookup should keep previous code page")
	}

	if err := env.SetCodePage(""); err != nil {
		t.Fatalf("SetCodePage(\"\") error = %v", err)
	}
	if env.CodePage != nil || env.CodePageName() != "" {
		t.Error("Empty name should reset code page")
	}
}

func TestLocalEnv_RedirectAndRestore(t *testing.T) {
	env := &LocalEnv{
		Log: zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1))),
	}

	for i := 0; i < 3; i++ {
		env.RedirectStdLog()
		if env.restoreStdLog == nil {
			t.Errorf("Iteration %d: restoreStdLog not set", i)
		}
		env.RestoreStdLog()
	}
}

func TestLocalEnv_NilLogger(t *testing.T) {
	env := &LocalEnv{}
	// Should not panic
	env.RedirectStdLog()
	if env.restoreStdLog != nil {
		t.Error("Expected restoreStdLog to remain nil")
	}
	env.RestoreStdLog()
}

func TestLocalEnv_Integration(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	env.Cfg = cfg
	env.Log = zaptest.NewLogger(t)

	env.RedirectStdLog()
	defer env.RestoreStdLog()

	if EnvFromContext(ctx).Cfg.Dump.Format != config.OutputFormatText {
		t.Error("Environment is not shared through context")
	}
}

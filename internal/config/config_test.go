package config

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestRegisterFlagsDefaults(t *testing.T) {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cfg := RegisterFlags(cmd)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if cfg.BindAddr != defaultBindAddr {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, defaultBindAddr)
	}
	if !cfg.BuiltinFallback {
		t.Fatalf("expected BuiltinFallback to default true")
	}
	if cfg.AccountCacheSize != defaultAccountCacheSize {
		t.Fatalf("AccountCacheSize = %v, want %v", cfg.AccountCacheSize, defaultAccountCacheSize)
	}
	if cfg.Fs == nil {
		t.Fatalf("expected a default Fs")
	}
}

func TestExpandHome(t *testing.T) {
	if got := expandHome("/absolute/path"); got != "/absolute/path" {
		t.Fatalf("expandHome left an absolute path alone, got %q", got)
	}
	if got := expandHome("~/.kari/kanari-db"); got == "~/.kari/kanari-db" {
		t.Fatalf("expandHome did not expand ~, got %q", got)
	}
}

func TestTreasuryFlagParsesAddress(t *testing.T) {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cfg := RegisterFlags(cmd)
	cmd.SetArgs([]string{"--treasury", "0x01"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if cfg.Treasury.IsZero() {
		t.Fatalf("expected treasury address to be parsed from flag")
	}
}

// Package config defines the node's typed configuration and binds it to
// command-line flags, mirroring the teacher's package-level cobra/pflag
// flag-var convention (cmd/txpool/main.go, cmd/opera/launcher/launcher.go)
// rather than a struct tag / viper-style loader.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kanari-network/kanari-core/internal/address"
)

// Config is the node's full runtime configuration.
type Config struct {
	// DataDir is the base directory holding the "state" and "journal"
	// subdirectories (spec §6's on-disk layout).
	DataDir string
	// BindAddr is the JSON-RPC HTTP listen address.
	BindAddr string
	// Treasury is the only signer Mint transactions may originate from.
	Treasury address.Address
	// AccountCacheSize is the size budget parsed from
	// --state.account-cache-size. It is not passed to the state store,
	// whose LRU account cache holds a fixed statestore.AccountCacheSize
	// entries.
	AccountCacheSize datasize.ByteSize
	// BuiltinFallback enables the native Transfer/Mint execution path:
	// while set, Transfer and Mint never go through the Move VM.
	BuiltinFallback bool
	// CORSOrigins lists the origins the RPC server's CORS middleware
	// allows; empty means same-origin only.
	CORSOrigins []string

	// Fs is a filesystem abstraction (the OS filesystem by default) that
	// tests can replace with an in-memory afero.Fs. The state store does
	// not use it: it creates the data directory through the OS directly.
	Fs afero.Fs
}

const (
	defaultDataDir  = "~/.kari/kanari-db"
	defaultBindAddr = "127.0.0.1:3000"
)

var defaultAccountCacheSize = 4 * datasize.MB

// treasuryFlagValue adapts address.Address to pflag.Value so it can be
// bound directly as a flag, the way the teacher wraps non-primitive types
// (e.g. common.Address) for cobra flags.
type treasuryFlagValue struct{ addr *address.Address }

func (v treasuryFlagValue) String() string { return v.addr.String() }
func (v treasuryFlagValue) Type() string   { return "address" }
func (v treasuryFlagValue) Set(s string) error {
	a, err := address.Parse(s)
	if err != nil {
		return err
	}
	*v.addr = a
	return nil
}

// RegisterFlags binds cmd's flags to a fresh Config and returns it. Flag
// values are only valid to read after cmd has parsed its arguments
// (spec: cobra root command pattern, teacher's cmd/*/main.go init()).
func RegisterFlags(cmd *cobra.Command) *Config {
	cfg := &Config{Fs: afero.NewOsFs()}

	cmd.Flags().StringVar(&cfg.DataDir, "datadir", defaultDataDir, "base data directory for state and journal")
	cmd.Flags().StringVar(&cfg.BindAddr, "rpc.addr", defaultBindAddr, "JSON-RPC HTTP listen address")
	cmd.Flags().Var(treasuryFlagValue{&cfg.Treasury}, "treasury", "address authorized to submit Mint transactions")
	cmd.Flags().BoolVar(&cfg.BuiltinFallback, "vm.builtin-fallback", true, "execute Transfer/Mint natively instead of through the Move VM")
	cmd.Flags().StringSliceVar(&cfg.CORSOrigins, "rpc.cors.origins", nil, "allowed CORS origins for the JSON-RPC HTTP server")

	cacheSize := defaultAccountCacheSize
	cmd.Flags().Var(&byteSizeFlag{&cfg.AccountCacheSize, &cacheSize}, "state.account-cache-size", "size budget for the hot account read cache (parsed, not applied to the state store)")
	cfg.AccountCacheSize = cacheSize

	original := cmd.PreRunE
	cmd.PreRunE = func(c *cobra.Command, args []string) error {
		if original != nil {
			if err := original(c, args); err != nil {
				return err
			}
		}
		cfg.DataDir = expandHome(cfg.DataDir)
		return nil
	}

	return cfg
}

// expandHome resolves a leading "~" the way the teacher's common/paths
// package resolves its own default data directory, since pflag performs
// no shell-style expansion on string defaults.
func expandHome(dir string) string {
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return dir
	}
	if dir == "~" {
		return home
	}
	return filepath.Join(home, dir[2:])
}

// byteSizeFlag adapts datasize.ByteSize to pflag.Value.
type byteSizeFlag struct {
	target  *datasize.ByteSize
	initial *datasize.ByteSize
}

func (f *byteSizeFlag) String() string {
	if f.target == nil || *f.target == 0 {
		return f.initial.String()
	}
	return f.target.String()
}
func (f *byteSizeFlag) Type() string { return "byteSize" }
func (f *byteSizeFlag) Set(s string) error {
	var v datasize.ByteSize
	if err := v.UnmarshalText([]byte(s)); err != nil {
		return err
	}
	*f.target = v
	return nil
}

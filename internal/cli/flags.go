package cli

import (
	"github.com/compose-network/checkpoint-monitor/configs"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	networkKey = "network"
	outputKey  = "output"
)

// flagDef defines a command-line flag bound to a viper configuration key.
type (
	flagType interface {
		string | int | bool
	}

	flagDef[T flagType] struct {
		name         string
		viperKey     string
		defaultValue T
		description  string
	}
)

var defaults = configs.MustDefaultConfig()

var (
	persistentStringFlags = []flagDef[string]{
		{"network", networkKey, string(defaultNetwork), "Network to query (mainnet or testnet)"},
		{"output", outputKey, "yaml", "Output format (yaml or json)"},
		{"log-level", "log.level", defaults.Log.Level, "Log level (debug, info, warn, error)"},
	}

	persistentIntFlags = []flagDef[int]{
		{"rpc-retry-attempts", "rpc.retry-attempts", int(defaults.RPC.RetryAttempts), "Attempts per RPC read before giving up"},
		{"signal-window", "scan.signal-window", int(defaults.Scan.SignalWindow), "Blocks scanned back from head for signal-service checkpoints"},
		{"outbox-window", "scan.outbox-window", int(defaults.Scan.OutboxWindow), "L1 blocks scanned back from head for rollup-outbox confirmations"},
	}

	serveStringFlags = []flagDef[string]{
		{"listen-addr", "server.listen-addr", defaults.Server.ListenAddr, "HTTP API listen address"},
	}
)

// DeclarePersistentFlags declares the flags shared by every subcommand on fs.
func DeclarePersistentFlags(fs *pflag.FlagSet) {
	declareFlags(fs, persistentStringFlags)
	declareFlags(fs, persistentIntFlags)
}

func init() {
	declareFlags(serveCmd.Flags(), serveStringFlags)
}

func declareFlags[T flagType](fs *pflag.FlagSet, flags []flagDef[T]) {
	for _, flag := range flags {
		declareFlag(fs, flag)
	}
}

// declareFlag declares a single flag and binds it to its viper key.
// The type parameter T determines the flag type (string, int, or bool).
func declareFlag[T flagType](fs *pflag.FlagSet, flag flagDef[T]) {
	switch v := any(flag.defaultValue).(type) {
	case string:
		fs.String(flag.name, v, flag.description)
	case int:
		fs.Int(flag.name, v, flag.description)
	case bool:
		fs.Bool(flag.name, v, flag.description)
	}
	if err := viper.BindPFlag(flag.viperKey, fs.Lookup(flag.name)); err != nil {
		panic(err)
	}
}

package configs

import (
	"os"
	"strings"
)

// ExpandEnv resolves ${VAR} and ${VAR:-default} references in every layer's
// string fields. Unset variables without a default expand to the empty string.
func (c *Config) ExpandEnv() {
	for network, chains := range c.Networks {
		for i := range chains {
			chains[i].L1.expandEnv()
			chains[i].L2.expandEnv()
		}
		c.Networks[network] = chains
	}
}

func (l *Layer) expandEnv() {
	l.Address = ExpandEnv(l.Address)
	l.RPC = ExpandEnv(l.RPC)
	l.ExplorerURL = ExpandEnv(l.ExplorerURL)
	l.Broadcaster = ExpandEnv(l.Broadcaster)
}

// ExpandEnv expands a single value. The first non-empty variable among
// "|"-separated names wins, e.g. ${TAIKO_TESTNET_L1_RPC|TAIKO_L1_RPC:-https://...}.
func ExpandEnv(value string) string {
	if !strings.Contains(value, "$") {
		return value
	}

	return os.Expand(value, func(ref string) string {
		names, fallback, _ := strings.Cut(ref, ":-")
		for _, name := range strings.Split(names, "|") {
			if v := os.Getenv(strings.TrimSpace(name)); v != "" {
				return v
			}
		}
		return fallback
	})
}

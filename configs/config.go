package configs

import (
	"errors"
	"fmt"
	"time"
)

var Values Config

type (
	NetworkName string
	FamilyName  string

	Config struct {
		Log      Log                     `mapstructure:"log"`
		Server   Server                  `mapstructure:"server"`
		RPC      RPC                     `mapstructure:"rpc"`
		Scan     Scan                    `mapstructure:"scan"`
		Networks map[NetworkName][]Chain `mapstructure:"networks"`
	}

	Log struct {
		Level string `mapstructure:"level"`
	}

	Server struct {
		ListenAddr   string        `mapstructure:"listen-addr"`
		ReadTimeout  time.Duration `mapstructure:"read-timeout"`
		WriteTimeout time.Duration `mapstructure:"write-timeout"`
	}

	RPC struct {
		Timeout         time.Duration `mapstructure:"timeout"`
		RetryAttempts   uint          `mapstructure:"retry-attempts"`
		RetryDelay      time.Duration `mapstructure:"retry-delay"`
		HeaderCacheSize int           `mapstructure:"header-cache-size"`
	}

	Scan struct {
		SignalWindow uint64 `mapstructure:"signal-window"`
		OutboxWindow uint64 `mapstructure:"outbox-window"`
	}

	Chain struct {
		ID                      string     `mapstructure:"id"`
		Name                    string     `mapstructure:"name"`
		ShortName               string     `mapstructure:"short-name"`
		Family                  FamilyName `mapstructure:"family"`
		Directions              Directions `mapstructure:"directions"`
		SupportsProofGeneration bool       `mapstructure:"supports-proof-generation"`
		L1                      Layer      `mapstructure:"l1"`
		L2                      Layer      `mapstructure:"l2"`
	}

	Directions struct {
		L1ToL2 bool `mapstructure:"l1-to-l2"`
		L2ToL1 bool `mapstructure:"l2-to-l1"`
	}

	Layer struct {
		Address         string  `mapstructure:"address"`
		RPC             string  `mapstructure:"rpc"`
		ChainID         uint64  `mapstructure:"chain-id"`
		ExplorerURL     string  `mapstructure:"explorer-url"`
		Broadcaster     string  `mapstructure:"broadcaster"`
		CheckpointsSlot *uint64 `mapstructure:"checkpoints-slot"`
	}
)

const (
	NetworkMainnet NetworkName = "mainnet"
	NetworkTestnet NetworkName = "testnet"

	FamilySignalService FamilyName = "signal-service"
	FamilyRollupOutbox  FamilyName = "rollup-outbox"
)

var (
	knownNetworks = map[NetworkName]struct{}{
		NetworkMainnet: {},
		NetworkTestnet: {},
	}
	knownFamilies = map[FamilyName]struct{}{
		FamilySignalService: {},
		FamilyRollupOutbox:  {},
	}
)

func (c *Config) Validate() error {
	var errs []error

	if c.RPC.Timeout <= 0 {
		errs = append(errs, errors.New("rpc.timeout must be greater than 0"))
	}
	if c.RPC.HeaderCacheSize <= 0 {
		errs = append(errs, errors.New("rpc.header-cache-size must be greater than 0"))
	}
	if c.Scan.SignalWindow == 0 {
		errs = append(errs, errors.New("scan.signal-window must be greater than 0"))
	}
	if c.Scan.OutboxWindow == 0 {
		errs = append(errs, errors.New("scan.outbox-window must be greater than 0"))
	}
	if len(c.Networks) == 0 {
		errs = append(errs, errors.New("networks must declare at least one network"))
	}

	for network, chains := range c.Networks {
		if _, ok := knownNetworks[network]; !ok {
			errs = append(errs, fmt.Errorf("networks.%s is not a known network (mainnet or testnet)", network))
			continue
		}

		seen := make(map[string]struct{}, len(chains))
		for i, chain := range chains {
			prefix := fmt.Sprintf("networks.%s[%d]", network, i)
			if chain.ID == "" {
				errs = append(errs, fmt.Errorf("%s.id is required", prefix))
				continue
			}
			prefix = fmt.Sprintf("networks.%s.%s", network, chain.ID)

			if _, dup := seen[chain.ID]; dup {
				errs = append(errs, fmt.Errorf("%s is declared more than once", prefix))
			}
			seen[chain.ID] = struct{}{}

			if chain.Name == "" {
				errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			}
			if _, ok := knownFamilies[chain.Family]; !ok {
				errs = append(errs, fmt.Errorf("%s.family %q must be either '%s' or '%s'", prefix, chain.Family, FamilySignalService, FamilyRollupOutbox))
			}
			if !chain.Directions.L1ToL2 && !chain.Directions.L2ToL1 {
				errs = append(errs, fmt.Errorf("%s.directions must enable at least one direction", prefix))
			}
			errs = append(errs, chain.L1.validate(prefix+".l1")...)
			errs = append(errs, chain.L2.validate(prefix+".l2")...)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

func (l Layer) validate(prefix string) []error {
	var errs []error
	if l.RPC == "" {
		errs = append(errs, fmt.Errorf("%s.rpc is required", prefix))
	}
	if l.Address == "" {
		errs = append(errs, fmt.Errorf("%s.address is required", prefix))
	}
	if l.ChainID == 0 {
		errs = append(errs, fmt.Errorf("%s.chain-id is required", prefix))
	}
	return errs
}

// Package cli holds the checkpoint-monitor subcommands.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/compose-network/checkpoint-monitor/configs"
	"github.com/compose-network/checkpoint-monitor/internal/api"
	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/compose-network/checkpoint-monitor/internal/metrics"
	"github.com/compose-network/checkpoint-monitor/internal/output"
	"github.com/compose-network/checkpoint-monitor/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultNetwork   = domain.NetworkTestnet
	defaultDirection = domain.DirectionL2ToL1
	defaultLimit     = 20
	maxLimit         = 100
)

var (
	chainsCmd = &cobra.Command{
		Use:   "chains",
		Short: "List the chains configured for a network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			network, err := selectedNetwork()
			if err != nil {
				return err
			}
			svc, err := newService(service.Options{})
			if err != nil {
				return err
			}
			defer svc.Close()

			return render(cmd, output.NewChainList(network, svc.Chains(network)))
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status [chain]",
		Short: "Show the latest checkpoint and lag for a chain, or for every chain with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			network, direction, err := selectedNetworkAndDirection(cmd)
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")
			if !all && len(args) == 0 {
				return errors.New("a chain is required unless --all is set")
			}

			svc, err := newService(service.Options{})
			if err != nil {
				return err
			}
			defer svc.Close()

			if all {
				return render(cmd, svc.StatusAll(cmd.Context(), network, direction))
			}

			status, err := svc.Status(cmd.Context(), network, args[0], direction)
			if err != nil {
				return err
			}
			return render(cmd, status)
		},
	}

	checkpointsCmd = &cobra.Command{
		Use:   "checkpoints <chain>",
		Short: "List recent checkpoints, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			network, direction, err := selectedNetworkAndDirection(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			if limit < 1 || limit > maxLimit {
				return fmt.Errorf("invalid limit %d: must be between 1 and %d", limit, maxLimit)
			}

			svc, err := newService(service.Options{})
			if err != nil {
				return err
			}
			defer svc.Close()

			checkpoints, err := svc.Checkpoints(cmd.Context(), network, args[0], direction, limit)
			if err != nil {
				return err
			}
			return render(cmd, output.NewCheckpointList(args[0], direction, checkpoints))
		},
	}

	checkProofCmd = &cobra.Command{
		Use:   "check-proof <chain> <block>",
		Short: "Check whether a source block can be proven on the target layer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			network, direction, err := selectedNetworkAndDirection(cmd)
			if err != nil {
				return err
			}
			blockNumber, err := parseBlockNumber(args[1])
			if err != nil {
				return err
			}

			svc, err := newService(service.Options{})
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := svc.CheckProof(cmd.Context(), network, args[0], direction, blockNumber)
			if err != nil {
				return err
			}
			return render(cmd, result)
		},
	}

	generateProofCmd = &cobra.Command{
		Use:   "generate-proof <chain> <block>",
		Short: "Generate a verified storage proof of the broadcaster's checkpoint slot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			network, direction, err := selectedNetworkAndDirection(cmd)
			if err != nil {
				return err
			}
			blockNumber, err := parseBlockNumber(args[1])
			if err != nil {
				return err
			}

			req := service.GenerateProofRequest{
				Chain:       args[0],
				Network:     network,
				Direction:   direction,
				BlockNumber: blockNumber,
			}
			if raw, _ := cmd.Flags().GetString("slot"); raw != "" {
				slot, err := strconv.ParseUint(raw, 0, 64)
				if err != nil {
					return fmt.Errorf("invalid storage slot %q: %w", raw, err)
				}
				req.StorageSlot = &slot
			}

			svc, err := newService(service.Options{})
			if err != nil {
				return err
			}
			defer svc.Close()

			generated, err := svc.GenerateProof(cmd.Context(), req)
			if err != nil {
				return err
			}

			if path, _ := cmd.Flags().GetString("out"); path != "" {
				format, err := output.ParseFormat(viper.GetString(outputKey))
				if err != nil {
					return err
				}
				if err := output.WriteFile(path, format, generated); err != nil {
					return fmt.Errorf("could not write proof file: %w", err)
				}
				slog.With("path", path).Info("storage proof written")
				return nil
			}
			return render(cmd, generated)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the checkpoint API and Prometheus metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := metrics.New()
			svc, err := newService(service.Options{Metrics: m})
			if err != nil {
				return err
			}
			defer svc.Close()

			handler := api.NewHandler(svc, m.Handler()).Routes()
			if err := api.Serve(cmd.Context(), configs.Values.Server, handler); err != nil {
				return fmt.Errorf("error occurred serving HTTP API: %w", err)
			}

			slog.Info("HTTP API stopped.")
			return nil
		},
	}
)

// Commands lists the subcommands in the order they are registered on the root.
var Commands = []*cobra.Command{chainsCmd, statusCmd, checkpointsCmd, checkProofCmd, generateProofCmd, serveCmd}

func init() {
	for _, cmd := range []*cobra.Command{statusCmd, checkpointsCmd, checkProofCmd, generateProofCmd} {
		cmd.Flags().String("direction", string(defaultDirection), "Checkpoint direction (l1ToL2 or l2ToL1)")
	}
	statusCmd.Flags().Bool("all", false, "Show status for every chain of the network")
	checkpointsCmd.Flags().Int("limit", defaultLimit, "Maximum number of checkpoints to list (1-100)")
	generateProofCmd.Flags().String("out", "", "Write the proof to this file instead of stdout")
	generateProofCmd.Flags().String("slot", "", "Storage slot override, decimal or 0x-prefixed (defaults to the layer's checkpoints slot)")
}

func newService(opts service.Options) (*service.Service, error) {
	svc, err := service.New(configs.Values, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build checkpoint service: %w", err)
	}
	return svc, nil
}

func selectedNetwork() (domain.Network, error) {
	return domain.ParseNetwork(viper.GetString(networkKey))
}

func selectedNetworkAndDirection(cmd *cobra.Command) (domain.Network, domain.Direction, error) {
	network, err := selectedNetwork()
	if err != nil {
		return "", "", err
	}
	raw, _ := cmd.Flags().GetString("direction")
	direction, err := domain.ParseDirection(raw)
	if err != nil {
		return "", "", err
	}
	return network, direction, nil
}

func parseBlockNumber(raw string) (uint64, error) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q: must be a non-negative integer", raw)
	}
	return n, nil
}

func render(cmd *cobra.Command, v any) error {
	format, err := output.ParseFormat(viper.GetString(outputKey))
	if err != nil {
		return err
	}
	return output.NewRenderer(cmd.OutOrStdout(), format).Render(v)
}

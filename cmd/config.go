package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"github.com/Mohsinsiddi/w3fund/internal/config"
	"github.com/Mohsinsiddi/w3fund/internal/price"
	"github.com/Mohsinsiddi/w3fund/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"show"},
	Short:   "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Println(string(data))
		fmt.Println(ui.Meta("Config directory: " + cfg.Dir()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by its key.

Keys: default_network, default_wallet, network_mode, price_source,
static_price, minimum_usd, price_feed, max_price_age, chain_id,
price_currency

minimum_usd and chain_id apply to the next ` + "`w3fund init`" + `; a deployed
ledger keeps the minimum it was created with.

Examples:
  w3fund config set price_source chainlink
  w3fund config set static_price 2500
  w3fund config set max_price_age 3600`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := validateConfigValue(key, value); err != nil {
			return err
		}
		if err := cfg.Set(key, value); err != nil {
			if errors.Is(err, config.ErrUnknownKey) {
				fmt.Println(ui.Hint("Run `w3fund config set --help` for the list of keys."))
			}
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s set to %q", key, value)))
		return nil
	},
}

var configAddRPCCmd = &cobra.Command{
	Use:   "add-rpc <chain> <url>",
	Short: "Add a custom RPC for a chain, tried before the built-in ones",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainName, url := args[0], args[1]
		if _, err := chain.NewRegistry().GetByName(chainName); err != nil {
			return fmt.Errorf("unknown chain %q; run `w3fund network list` to see all chains", chainName)
		}
		if err := cfg.AddRPC(chainName, url); err != nil {
			fmt.Println(ui.Warn(err.Error()))
			return nil
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Added RPC %s for %s", url, chainName)))
		return nil
	},
}

var configRemoveRPCCmd = &cobra.Command{
	Use:   "remove-rpc <chain> <url>",
	Short: "Remove a custom RPC",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveRPC(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Removed RPC %s for %s", args[1], args[0])))
		return nil
	},
}

// validateConfigValue checks values cfg.Set stores verbatim.
func validateConfigValue(key, value string) error {
	switch key {
	case "default_network":
		if _, err := chain.NewRegistry().GetByName(value); err != nil {
			return fmt.Errorf("unknown chain %q", value)
		}
	case "static_price", "minimum_usd":
		v, err := price.ParseUSD(value, 18)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if v.Sign() <= 0 {
			return fmt.Errorf("%s must be positive, got %q", key, value)
		}
	case "price_feed":
		if value != "" && !common.IsHexAddress(value) {
			return fmt.Errorf("price_feed must be an address, got %q", value)
		}
	}
	return nil
}

func init() {
	configCmd.AddCommand(configListCmd, configSetCmd, configAddRPCCmd, configRemoveRPCCmd)
}

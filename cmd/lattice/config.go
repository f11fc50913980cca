package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or edit lattice's local configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration value (trunk|remote|secrets-provider|default-forge)",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", true)
	if err != nil {
		return err
	}
	if a.out.IsJSON() {
		return a.out.JSON(a.cfg)
	}
	a.out.Info(fmt.Sprintf("trunk            = %s", a.cfg.Trunk))
	a.out.Info(fmt.Sprintf("remote           = %s", a.cfg.Remote))
	a.out.Info(fmt.Sprintf("secrets_provider = %s", a.cfg.SecretsProvider))
	a.out.Info(fmt.Sprintf("default_forge    = %s", a.cfg.DefaultForge))
	a.out.Info(fmt.Sprintf("(%s)", a.cfgMgr.Path()))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", true)
	if err != nil {
		return err
	}
	key, value := args[0], args[1]
	cfg := a.cfg
	switch key {
	case "trunk":
		cfg.Trunk = value
	case "remote":
		cfg.Remote = value
	case "secrets-provider":
		cfg.SecretsProvider = value
	case "default-forge":
		cfg.DefaultForge = value
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	if err := a.cfgMgr.Save(cfg); err != nil {
		return err
	}
	a.out.Success(fmt.Sprintf("%s = %s", key, value))
	return nil
}

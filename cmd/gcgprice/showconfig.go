package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scipopt/gcg-colgen/pricingloop"
)

var showConfigPath string

func init() {
	cmd := &cobra.Command{
		Use:   "show-config",
		Short: "print the resolved pricing-loop configuration as YAML",
		RunE:  runShowConfig,
	}
	cmd.Flags().StringVar(&showConfigPath, "config", "", "YAML pricing-loop configuration file to load instead of the defaults")
	rootCmd.AddCommand(cmd)
}

func runShowConfig(*cobra.Command, []string) error {
	cfg := pricingloop.DefaultConfig()
	if showConfigPath != "" {
		f, err := os.Open(showConfigPath)
		if err != nil {
			return fmt.Errorf("gcgprice: %w", err)
		}
		cfg, err = pricingloop.LoadConfigYAML(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(out))

	return nil
}

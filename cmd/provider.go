package main

import (
	"fmt"
	"io"
	"os"

	"github.com/UnknownOlympus/geoplaces/internal/geocoding"
	"github.com/spf13/cobra"
)

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Inspect and select the reverse geocoding provider",
}

var providerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers with configured credentials",
	RunE: func(_ *cobra.Command, _ []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}

		reg := a.registry()
		writeProviders(os.Stdout, reg.ListAvailable(), reg.Current())

		return nil
	},
}

var providerSelectCmd = &cobra.Command{
	Use:   "select <here|yandex|google|none>",
	Short: "Select and remember the provider to use",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}

		if err = a.registry().Select(geocoding.ProviderType(args[0])); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Selected geocoder: %s\n", args[0])

		return nil
	},
}

var providerCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the selected provider",
	RunE: func(_ *cobra.Command, _ []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stdout, a.registry().Current())

		return nil
	},
}

func init() {
	providerCmd.AddCommand(providerListCmd, providerSelectCmd, providerCurrentCmd)
}

func writeProviders(w io.Writer, available []geocoding.ProviderInfo, current geocoding.ProviderType) {
	if len(available) == 0 {
		fmt.Fprintln(w, "No geocoders are configured.")
		return
	}

	for _, info := range available {
		marker := " "
		if info.Type == current {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-7s %s\n", marker, info.Type, info.Name)
	}
}

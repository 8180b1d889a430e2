package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/eora"
	"github.com/aretw0/eora/pkg/llm"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of eora",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("eora version %s\n", strings.TrimSpace(eora.Version))
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the model providers that can be configured",
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range llm.AvailableProviders() {
			fmt.Println(p)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(providersCmd)
}

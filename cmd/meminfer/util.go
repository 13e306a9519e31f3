package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// getFlag returns a bool flag's value, or exits if the flag is
// misdeclared (a programmer error, not a user one).
func getFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// getIntFlag returns an int flag's value.
func getIntFlag(cmd *cobra.Command, flag string) int {
	r, err := cmd.Flags().GetInt(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// getStringFlag returns a string flag's value.
func getStringFlag(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// requireArg fetches args[0], or prints usage and exits if absent.
func requireArg(cmd *cobra.Command, args []string) string {
	if len(args) < 1 {
		fmt.Println(cmd.UsageString())
		os.Exit(1)
	}

	return args[0]
}

// Command claimctl is operator tooling for the claim redemption service:
// signing sample webhooks for vendor integrations, previewing credentials
// and minting development bearer tokens.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

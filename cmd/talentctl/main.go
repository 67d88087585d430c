// Command talentctl inspects and administers a talentboard deployment.
//
// Read commands (candidates, evaluate, leaderboard, export) talk to a running
// API server. Maintenance commands (migrate, seed, rerank) connect to
// DATABASE_URL directly.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

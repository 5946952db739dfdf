// Command habitctl is the operator CLI: database migrations and direct scoreboard access.
package main

import "os"

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		os.Exit(1)
	}
}

// Command ovhqueue is the Operator CLI (C12): offline administration of the
// data/ directory without the HTTP control plane running.
package main

import (
	"fmt"
	"os"

	"github.com/arturoibarra/ovh-fleet/cmd/ovhqueue/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command cdprelay runs the CDP relay: a bidirectional bridge between
// an upstream CDP automation client and a browser-extension-mediated
// tab.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "cdprelay",
		Short: "Bridge a CDP automation client to a browser extension's tab",
	}
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

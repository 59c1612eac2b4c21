// Command miragend is a reverse proxy that patches or obfuscates the pages
// of one upstream site before handing them to the client.
//
// Usage:
//
//	miragend --upstream-base-url https://origin.example
//	miragend --config /etc/miragend/config.yaml
//	miragend version
//
// Settings can also come from MIRAGEND_* environment variables or a .env
// file. See --help for the flags.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command librestore restores manga library backups into a local library.
package main

import "github.com/mesh-intelligence/librestore/internal/cli"

func main() {
	cli.Execute()
}

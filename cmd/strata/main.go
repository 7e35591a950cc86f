// Command strata is the CLI for the strata dynamic-schema entity store.
package main

import "github.com/tessellate-io/strata/internal/cli"

func main() {
	cli.Execute()
}

// Command subtrack serves the subscription tracker API and offers a few
// local management commands against the same store.
package main

import "subtrack/internal/cli"

func main() {
	cli.LoadEnvFile()
	Execute()
}

// Command pgstar is a debug surface for the datum/Starlark codec.
package main

import "github.com/pgstar/pgstar/internal/cli"

func main() {
	cli.Execute()
}

package main

import (
	"os"

	"railsdock/cmd"
)

// main delegates to cmd.Execute and exits with the status it returns: the
// wrapped command's exit code, 2 for usage errors, 1 for anything else.
func main() {
	os.Exit(cmd.Execute())
}

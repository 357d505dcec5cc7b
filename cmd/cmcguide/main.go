// Command cmcguide resolves guidance, answers questions and maintains the
// retrieval index from the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

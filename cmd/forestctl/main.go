// Command forestctl loads a forest from a DynamoDB table and inspects it.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

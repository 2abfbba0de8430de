// Command rewritectl inspects and tunes the multi-term rewrite strategy.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/cmd/rewritectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

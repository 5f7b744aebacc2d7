// eduvane runs the learning-intelligence pipeline: photo evaluation and
// practice generation over HTTP, Telegram or the command line.
//
// Usage:
//
//	eduvane serve [--bot]
//	eduvane bot
//	eduvane evaluate <image-file> [--user=<id>] [--save]
//	eduvane practice <request> [--user=<id>] [--save]
//	eduvane history [user] [--limit=5]
//	eduvane check-config
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

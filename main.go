package main

import (
	"log"

	"github.com/codalotl/fingerprint/internal/cli"
)

func main() {
	if err := cli.Run(); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"github.com/andrescamacho/mrta-go/internal/adapters/cli"
)

func main() {
	cli.Execute()
}

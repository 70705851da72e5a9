package main

import (
	"os"

	"github.com/huskrun/husk/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args[1:], os.Stdout, os.Stderr))
}

package main

import "github.com/cbout22/policygate/internal/cli"

func main() {
	cli.Execute()
}

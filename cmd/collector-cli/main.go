package main

import "deposit-collector/cmd/collector-cli/cmd"

func main() {
	cmd.Execute()
}

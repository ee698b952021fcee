package main

import "github.com/atc-agent/atc/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/agentic-research/radar/cmd"

func main() {
	cmd.Execute()
}

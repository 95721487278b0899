package main

import "github.com/dumpsleuth/cmd/cli/cmd"

func main() {
	cmd.Execute()
}

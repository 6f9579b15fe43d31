package main

import "github.com/ragis-group/ragis-cli/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/hkogrunt/grunt/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/lepinkainen/tunetrackr/cmd"

var execute = cmd.Execute

func main() {
	execute()
}

package main

import "github.com/notargets/dgcore/cmd"

func main() {
	cmd.Execute()
}

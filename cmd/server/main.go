package main

import "github.com/campus-events/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/hipsterbrown/chassis-comm/cmd/chassisctl/cmd"

func main() {
	cmd.Execute()
}

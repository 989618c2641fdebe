package main

import "github.com/mrlokans/notebridge/cmd/notebridge/cmd"

func main() {
	cmd.Execute()
}

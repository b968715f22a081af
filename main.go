package main

import "github.com/nexelhq/hx1/cmd"

func main() {
	cmd.Execute()
}

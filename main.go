package main

import "github.com/dt-pm-tools/burndown-sync/cmd"

func main() {
	cmd.Execute()
}

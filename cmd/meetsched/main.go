package main

import "github.com/example/meetsched/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/chenyuetian/galyleo/cmd/galyleo/cmd"

func main() {
	cmd.Execute()
}

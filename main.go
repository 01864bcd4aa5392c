package main

import "cachebench/cmd"

func main() {
	cmd.Execute()
}

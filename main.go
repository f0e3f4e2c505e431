package main

import "kigurumi-cli/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/KaramelBytes/dqscan-cli/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/KaramelBytes/tgjs-cli/cmd"

func main() {
	cmd.Execute()
}

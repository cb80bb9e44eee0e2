package main

import "github.com/KaramelBytes/carlens/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/brogergvhs/noveld/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/wkalt/ckpt/cli/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/fluxdec/fluxdec/cmd"

func main() {
	cmd.Execute()
}

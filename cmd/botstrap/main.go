package main

import "botstrap/cmd/botstrap/cmd"

func main() {
	cmd.Execute()
}

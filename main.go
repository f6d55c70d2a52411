package main

import "github.com/intermode/nvs-hal/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/frahmantamala/payflow/cmd"

func main() {
	cmd.Execute()
}

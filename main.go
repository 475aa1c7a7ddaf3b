package main

import "metinanaliz/internal/cli"

func main() {
	cli.Execute()
}

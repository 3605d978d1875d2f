package main

import "astrotoken/internal/cli"

func main() {
	cli.Execute()
}

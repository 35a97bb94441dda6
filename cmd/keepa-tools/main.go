package main

import "keepa-tools/internal/cli"

func main() {
	cli.Execute()
}

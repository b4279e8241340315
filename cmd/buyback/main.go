package main

import "buyback-quotes/internal/cli"

func main() {
	cli.Execute()
}

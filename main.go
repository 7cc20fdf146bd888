package main

import "tradeArena/internal/cli"

func main() {
	cli.Run()
}

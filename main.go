package main

import "github.com/freshcart/basket/internal/cli"

func main() {
	cli.Execute()
}

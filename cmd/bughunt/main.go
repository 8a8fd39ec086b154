package main

import "github.com/mcoot/bughunt/internal/cli"

func main() {
	cli.Execute()
}

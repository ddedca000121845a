package main

import "github.com/mcoot/aiventure/internal/cli"

func main() {
	cli.Execute()
}

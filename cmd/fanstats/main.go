package main

import "github.com/vietddude/fanstats/internal/cli"

func main() {
	cli.Execute()
}

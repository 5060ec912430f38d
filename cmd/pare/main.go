package main

import "github.com/covpare/pare/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/opendce/backend/internal/cli"

func main() {
	cli.Execute()
}

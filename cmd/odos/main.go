package main

import "github.com/vietddude/odos/internal/cli"

func main() {
	cli.Execute()
}

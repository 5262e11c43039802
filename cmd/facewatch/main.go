package main

import "facewatch/internal/cli"

func main() {
	cli.Execute()
}

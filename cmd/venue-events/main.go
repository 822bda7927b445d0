package main

import "github.com/proprogresja/venue-events/internal/cli"

func main() {
	cli.Execute()
}

package main

import "songplay_etl/internal/cli"

func main() {
	cli.Execute()
}

package main

import (
	"lab-trend-thumbnails/internal/cli"
)

func main() {
	cli.Execute()
}

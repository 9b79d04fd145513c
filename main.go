package main

import (
	"github.com/Howie-0721/ICR-Identification-tool/cmd"
)

func main() {
	cmd.Execute()
}

package main

import (
	"os"

	"github.com/annolab/emlkit/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

package main

import (
	"os"

	"github.com/GordonCopestake/Logisplit/cmd/logisplit/commands"
	"github.com/GordonCopestake/Logisplit/cmd/logisplit/ui"
)

func main() {
	if err := commands.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/KabriAcid/ScrynCard-sub001/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "sessiond:", err)
		os.Exit(1)
	}
}

// Command panel aggregates judge feedback and asks a completion service for
// a written analysis, either as an HTTP service or one-shot from the CLI.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func execute(ctx context.Context) error {
	return newRootCommand(defaultDeps()).ExecuteContext(ctx)
}

// Command jq-install places a jq executable in a package's bin directory,
// downloading a prebuilt release asset or building the release tarball
// from source when no asset matches the host.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version will be set at build time via -ldflags
var Version = "v1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, newRootCmd(defaultDeps()), os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs cmd with args and maps the outcome to an exit status:
// 0 on success or skip, 1 on any failure.
func execute(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

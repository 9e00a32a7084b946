// Command handplay plays a video file under hand-gesture control.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ayusman/handplay/internal/observability"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("command failed", zap.Error(err))
		}
		fmt.Fprintln(os.Stderr, err)
		observability.Sync()
		os.Exit(1)
	}
	observability.Sync()
}

// cmd/linkareer/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/cli"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/ui"
	"github.com/rs/zerolog/log"
)

func main() {
	// Cancel the crawl on interrupt so browsers are closed and output is finalized
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx)
	stop()
	if err == nil {
		return
	}

	if errors.Is(err, context.Canceled) {
		log.Warn().Msg("Interrupted, partial output was finalized")
		os.Exit(130)
	}
	fmt.Fprintln(os.Stderr, ui.Error("Error: "+err.Error()))
	os.Exit(1)
}

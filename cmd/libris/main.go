package main

import (
	"context"
	"os"

	"github.com/aretw0/libris"
	"github.com/charmbracelet/fang"
)

func main() {
	root := newRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(libris.Version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}

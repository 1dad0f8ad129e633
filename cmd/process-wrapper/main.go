package main

import (
	"fmt"
	"os"

	"github.com/VikingOwl91/procjail/internal/wrapper"
)

func main() {
	inv, err := wrapper.Parse(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage: %s <directory> -- <executable> [<arg>...]\n", os.Args[0])
		os.Exit(1)
	}

	if err := inv.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	os.Exit(1) // unreachable — Run replaces the process image on success
}

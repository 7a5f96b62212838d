package main

import (
	"errors"
	"fmt"
	"os"
)

// exitNoFreeGuest is returned by "allocate" when every guest has a live server.
const exitNoFreeGuest = 3

func main() {
	os.Exit(run())
}

func run() int {
	c := &cli{}
	err := c.command().Execute()
	if cerr := c.close(); cerr != nil {
		fmt.Fprintln(os.Stderr, "guestpool: close:", cerr)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errNoFreeGuest):
		return exitNoFreeGuest
	default:
		fmt.Fprintln(os.Stderr, "guestpool:", err)
		return 1
	}
}

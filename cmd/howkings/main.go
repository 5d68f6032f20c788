// Copyright (c) 2026 Howkings. All rights reserved.

// Command howkings is the Howkings platform command-line client.
//
// All wiring lives in internal/cli; this file only hands control to the
// command tree.
package main

import "github.com/howkings/howkings-go/internal/cli"

func main() {
	cli.Execute()
}

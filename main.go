/*
	Copyright 2025 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/carclash-server/cmd"

func main() {
	cmd.Execute()
}

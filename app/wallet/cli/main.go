package main

import "github.com/adamwoolhether/rollup/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}

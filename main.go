package main

import "gocddb/cmd"

func main() {
	cmd.Execute()
}

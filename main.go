package main

import "tag-sync/cmd"

func main() {
	cmd.Execute()
}

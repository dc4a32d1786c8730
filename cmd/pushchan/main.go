package main

import "github.com/THPTUHA/pushchan/cmd"

func main() {
	cmd.Execute()
}

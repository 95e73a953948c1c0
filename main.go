package main

import "github.com/vietdv277/tierctl/cmd"

func main() {
	cmd.Execute()
}

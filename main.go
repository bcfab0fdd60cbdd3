package main

import "github.com/lexka/ragboot/cmd"

func main() {
	cmd.Execute()
}

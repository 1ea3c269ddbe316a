package main

import "github.com/devgoel186/tracemon/internal/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/mapsnap/mapsnap/cmd"

func main() {
	cmd.Execute()
}

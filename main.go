package main

import "github.com/nerval-io/gatehouse/cmd"

func main() {
	cmd.Execute()
}

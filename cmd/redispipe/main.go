package main

import "redis-go/cmd"

func main() {
	cmd.Execute()
}

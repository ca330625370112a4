package main

import "github.com/semtweets/cli/cmd/semtweets/cli"

func main() {
	cli.Run()
}

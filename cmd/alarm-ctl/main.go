package main

import "github.com/oshokin/alarm-bridge/cmd/alarm-ctl/cmd"

func main() {
	cmd.Execute()
}

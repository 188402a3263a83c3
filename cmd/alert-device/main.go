package main

import "github.com/oshokin/alert-relay/cmd/alert-device/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/oshokin/alert-relay/cmd/alert-docserver/cmd"

func main() {
	cmd.Execute()
}

package main

import "go.pilab.hu/gatekeeper/cmd/gatectl/cmd"

func main() {
	cmd.Execute()
}

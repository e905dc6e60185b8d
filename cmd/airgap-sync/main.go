package main

import "github.com/oshokin/code-airgap/cmd/airgap-sync/cmd"

func main() {
	cmd.Execute()
}

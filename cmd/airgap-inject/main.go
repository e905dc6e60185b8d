package main

import "github.com/oshokin/code-airgap/cmd/airgap-inject/cmd"

func main() {
	cmd.Execute()
}

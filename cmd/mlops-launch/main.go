package main

import "github.com/oshokin/mlops-launch/cmd/mlops-launch/cmd"

func main() {
	cmd.Execute()
}

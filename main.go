package main

import "github.com/argodata/argo/cmd"

func main() {
	cmd.Execute()
}

package main

import (
	"os"

	graphchatcmder "github.com/papercomputeco/graphchat/cmd/graphchat"
)

func main() {
	cmd := graphchatcmder.NewGraphchatCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

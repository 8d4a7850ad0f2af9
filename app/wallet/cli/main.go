package main

import "github.com/omoto202/mycoin3/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}

package main

import (
	"github.com/xkilldash9x/regwizard/cmd"
)

func main() {
	cmd.Execute()
}

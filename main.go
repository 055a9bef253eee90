// The main package for the fashionbot executable.
package main

import (
	"github.com/stylistiq/fashionbot/cmd"
)

func main() {
	cmd.Execute()
}

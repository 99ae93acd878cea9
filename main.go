package main

import (
	"exusiai.dev/seqwindow/cmd/app"
)

func main() {
	app.Run()
}

//go:build tinygo

package main

import (
	"tvout/app"
	"tvout/hal"
)

func main() {
	app.Run(hal.New(), app.DefaultConfig())
}

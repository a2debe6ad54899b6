package main

import (
	"log"

	harvestbook "github.com/mkern/harvestbook"
)

func main() {
	cfg, err := harvestbook.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	app := harvestbook.New(cfg)
	defer app.Close()
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

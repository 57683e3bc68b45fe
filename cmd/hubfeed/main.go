package main

import (
	"log"

	"github.com/MrSnakeDoc/hubfeed/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ hubfeed failed to start: %v", err)
	}
}

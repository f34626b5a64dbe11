package main

import (
	"log"

	"github.com/MrSnakeDoc/dialcast/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ dialcast failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ dialcast failed: %v", err)
	}
}

package main

import (
	"github.com/joho/godotenv"
	"github.com/pfrederiksen/election-scraper/internal/cli"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	cli.Execute()
}

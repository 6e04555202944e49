package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/mohit83k/aaabridge/internal/cli"
)

func main() {
	cli.Execute()
}

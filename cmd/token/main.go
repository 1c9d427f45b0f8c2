package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/NikFin25/deanery-bot/utils/auth"
)

// Mints a service token for the import and gateway endpoints.
func main() {
	service := flag.String("service", "deanery-export", "service name embedded in the token")
	expiry := flag.Duration("expiry", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}
	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "deanery-bot"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: secret,
		Expiry: *expiry,
		Issuer: issuer,
	})

	token, err := jwtManager.GenerateServiceToken(*service)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Println(token)
}

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
)

func generateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func main() {
	accessKey, err := generateKey()
	if err != nil {
		log.Fatalf("Failed to generate access key: %v", err)
	}
	refreshKey, err := generateKey()
	if err != nil {
		log.Fatalf("Failed to generate refresh key: %v", err)
	}

	fmt.Println("=================================================")
	fmt.Println("  JWT Signing Keys (HS256)")
	fmt.Println("=================================================")
	fmt.Println()
	fmt.Println("Add these to your config/private.yaml:")
	fmt.Printf("jwt_access_key: \"%s\"\n", accessKey)
	fmt.Printf("jwt_refresh_key: \"%s\"\n", refreshKey)
	fmt.Println()
	fmt.Println("IMPORTANT:")
	fmt.Println("- The two keys must differ: a leaked access key must not mint refresh tokens!")
	fmt.Println("- Keep these keys secret and secure!")
	fmt.Println("- Never commit them to version control!")
	fmt.Println("=================================================")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"uamvh.cloud/escolar/config"
	"uamvh.cloud/escolar/security"
)

func main() {
	path := flag.String("config", os.Getenv("ESCOLAR_CONFIG"), "path to escolar.yaml")
	email := flag.String("email", "", "email of the identity")
	role := flag.String("role", "maestro", "role of the identity")
	device := flag.String("device", "", "device id")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load(context.Background(), *path)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Gateway.SigningSecret == "" {
		log.Fatal("gateway.signingSecret is not configured")
	}

	token, err := security.CreateIdentityToken(security.Identity{
		FullName: *email,
		Email:    *email,
		Role:     *role,
		Device:   *device,
	}, cfg.Gateway.SigningSecret, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}

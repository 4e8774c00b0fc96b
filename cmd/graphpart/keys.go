package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dd0wney/cluso-graphpart/pkg/auth"
	"github.com/dd0wney/cluso-graphpart/pkg/config"
	"github.com/dd0wney/cluso-graphpart/pkg/sparse"
	servertls "github.com/dd0wney/cluso-graphpart/pkg/tls"
)

func handleToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("GRAPHPART_CONFIG"), "YAML configuration file")
	subject := fs.String("subject", "", "who the token is for")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("no JWT secret configured (set auth.jwt_secret or %s)", config.EnvJWTSecret)
	}
	m, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	token, err := m.GenerateToken(*subject)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func handleHashKey(args []string) error {
	fs := flag.NewFlagSet("hash-key", flag.ExitOnError)
	key := fs.String("key", "", "existing key to hash (default: generate a new one)")
	fs.Parse(args)

	k := *key
	if k == "" {
		var err error
		if k, err = auth.GenerateKey(); err != nil {
			return err
		}
		fmt.Println("API key (give to the client, it is not stored):")
		fmt.Println(k)
		fmt.Println()
	}
	hash, err := auth.HashKey(k)
	if err != nil {
		return err
	}
	fmt.Println("Add to auth.api_key_hashes:")
	fmt.Println(hash)
	return nil
}

func handleConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("convert: expected <in> <out>, got %d arguments", fs.NArg())
	}
	m, err := sparse.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := sparse.WriteFile(fs.Arg(1), m); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s: %dx%d, %d entries\n", fs.Arg(1), m.Rows, m.Cols, m.NNZ())
	return nil
}

func handleCert(args []string) error {
	fs := flag.NewFlagSet("cert", flag.ExitOnError)
	hosts := fs.String("hosts", "localhost,127.0.0.1", "comma-separated DNS names and IPs")
	certFile := fs.String("cert", "server.crt", "certificate output path")
	keyFile := fs.String("key", "server.key", "private key output path")
	validFor := fs.Duration("valid-for", servertls.DefaultValidFor, "certificate lifetime")
	fs.Parse(args)

	if err := servertls.WriteSelfSigned(splitHosts(*hosts), *validFor, *certFile, *keyFile); err != nil {
		return err
	}
	fmt.Printf("Wrote %s and %s (valid %s)\n", *certFile, *keyFile, validFor.Round(time.Hour))
	fmt.Println("Set server.tls.cert_file and server.tls.key_file to use them.")
	return nil
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

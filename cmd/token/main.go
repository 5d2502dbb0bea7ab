// Command token issues a bearer token for an API client.
//
//	AUTH_SECRET=... token -client kiosk-7
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/auth"
)

type settings struct {
	Secret string        `envconfig:"AUTH_SECRET" required:"true"`
	Issuer string        `envconfig:"AUTH_ISSUER" default:"faceratio"`
	TTL    time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"720h"`
}

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var s settings
	if err := envconfig.Process("", &s); err != nil {
		return err
	}
	if s.Secret == "" {
		return errors.New("AUTH_SECRET is empty")
	}

	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	client := fs.String("client", "", "Client name carried in the token")
	ttl := fs.Duration("ttl", s.TTL, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *client == "" {
		return errors.New("-client is required")
	}

	token, err := auth.NewTokenService(s.Secret, s.Issuer, *ttl).Issue(*client)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(stdout, token)
	return err
}

// createtoken mints a bearer token for the status API or the collector.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"axiapac.com/punchsync/security"
)

func main() {
	var name, role, secret string
	var ttl time.Duration

	flagSet := pflag.NewFlagSet("createtoken", pflag.ExitOnError)
	flagSet.StringVar(&name, "name", "operator", "identity name")
	flagSet.StringVar(&role, "role", "operator", "operator or sync")
	flagSet.StringVar(&secret, "secret", os.Getenv("PUNCHSYNC_SIGNING_SECRET"), "base64 signing secret")
	flagSet.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	flagSet.Parse(os.Args[1:])

	token, err := security.CreateIdentityToken(&security.Identity{
		Name:     name,
		Provider: security.Issuer,
		Role:     role,
	}, secret, int64(ttl/time.Second))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

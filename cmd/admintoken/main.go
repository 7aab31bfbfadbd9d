// File: cmd/admintoken/main.go
//
// admintoken prints a signed bearer token using the same config as the
// server: an admin token for the operator named by -subject, or with
// -customer a token bound to that subscriber email.
package main

import (
	"flag"
	"fmt"
	"os"

	"subscription-commerce/internal/config"
	"subscription-commerce/internal/infra/api/apiv1"
)

func main() {
	subject := flag.String("subject", "", "operator identity recorded as processedBy, or the subscriber email with -customer")
	customer := flag.Bool("customer", false, "mint a customer token for the -subject email")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *subject == "" {
		fmt.Fprintln(os.Stderr, "-subject is required")
		os.Exit(2)
	}
	auth := apiv1.NewAuthManager(cfg.Admin)
	mint := auth.Mint
	if *customer {
		mint = auth.MintCustomer
	}
	tok, err := mint(*subject)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mint:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

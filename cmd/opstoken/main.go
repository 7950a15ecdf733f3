// opstoken mints a bearer token for the order desk ops API, signed with
// OPS_JWT_SECRET from the environment or .env.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/spec-kit/order-desk/internal/auth"
	"github.com/spec-kit/order-desk/internal/config"
	"github.com/spec-kit/order-desk/internal/domain"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var subject, role string
	var ttl int

	flagSet := pflag.NewFlagSet("opstoken", pflag.ContinueOnError)
	flagSet.StringVar(&subject, "subject", "", "operator name recorded in the token (required)")
	flagSet.StringVar(&role, "role", string(domain.OpsRoleViewer), "VIEWER or ADMIN")
	flagSet.IntVar(&ttl, "ttl", 0, "lifetime in minutes (default OPS_TOKEN_TTL_MINUTES)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("--subject is required")
	}

	cfg := config.LoadOps()
	if ttl <= 0 {
		ttl = cfg.TokenTTLMinutes
	}
	opsRole := domain.OpsRole(strings.ToUpper(role))
	if !opsRole.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}

	token, expiresAt, err := auth.NewTokenManager(cfg.JWTSecret, ttl).GenerateToken(subject, opsRole)
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

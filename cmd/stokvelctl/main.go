// Command stokvelctl drives a stokvel server over its RPC API.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/middleware"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/service"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/api"
)

var Version = "dev"

// app carries the settings shared by every subcommand. Flags win over
// STOKVEL_* environment variables.
type app struct {
	v   *viper.Viper
	out io.Writer
}

func main() {
	root := newRootCmd(os.Stdout)
	if err := root.Execute(); err != nil {
		if kind := service.ErrorKind(err); kind != "internal" && kind != "none" {
			fmt.Fprintf(os.Stderr, "error (%s): %v\n", kind, err)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}
	a.v.SetEnvPrefix("STOKVEL")
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "stokvelctl",
		Short:         "Operate stokvels: members, contributions, payouts and settlements",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("server", "http://localhost:8080", "server base URL (STOKVEL_SERVER)")
	flags.String("token", "", "bearer token (STOKVEL_TOKEN)")
	flags.Duration("timeout", 30*time.Second, "per-request timeout")
	for _, name := range []string{"server", "token", "timeout"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		a.stokvelCmd(),
		a.memberCmd(),
		a.contributionCmd(),
		a.payoutCmd(),
		a.cycleCmd(),
		a.tokenCmd(),
		a.whoamiCmd(),
	)
	return root
}

func (a *app) clientOptions() []connect.ClientOption {
	return []connect.ClientOption{
		connect.WithInterceptors(middleware.BearerToken(a.v.GetString("token"))),
	}
}

func (a *app) httpClient() *http.Client {
	return &http.Client{Timeout: a.v.GetDuration("timeout")}
}

func (a *app) stokvels() api.StokvelServiceClient {
	return api.NewStokvelServiceClient(a.httpClient(), a.v.GetString("server"), a.clientOptions()...)
}

func (a *app) auth() api.AuthServiceClient {
	return api.NewAuthServiceClient(a.httpClient(), a.v.GetString("server"), a.clientOptions()...)
}

// print writes msg as indented JSON.
func (a *app) print(msg any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(msg)
}

func parseAmount(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return d, nil
}

func parseCycle(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid cycle %q: must be a positive integer", s)
	}
	return n, nil
}

// decimalFlag reads a decimal flag, treating an empty value as zero.
func decimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return decimal.Zero, nil
	}
	return parseAmount(name, s)
}

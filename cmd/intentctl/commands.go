package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"speechact/internal/intent/models"
	"speechact/internal/intent/service"
	jwttoken "speechact/internal/jwt_token"
	"speechact/internal/platform/config"
	"speechact/internal/schema"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "intentctl",
		Short:         "Operate the caregiver intent gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMapCmd(), newDimensionsCmd(), newTokenCmd())
	return root
}

// factFile is the on-disk shape of a fact batch. JSON is accepted as well
// since it parses as YAML.
type factFile struct {
	Facts []struct {
		Subjects   []string `yaml:"subjects"`
		Dimension  string   `yaml:"dimension"`
		Value      string   `yaml:"value"`
		Confidence *float64 `yaml:"confidence"`
	} `yaml:"facts"`
}

func newMapCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Validate and map a fact batch without calling the backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raws, err := readFacts(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			svc := service.New(nil, nil)
			contract, err := svc.Map(cmd.Context(), raws)
			if err != nil {
				result := models.NewFailureResult(err, firstSubject(raws))
				_ = writeJSON(cmd.OutOrStdout(), result)
				return errors.New(result.Message)
			}
			return writeJSON(cmd.OutOrStdout(), contract)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "fact batch (YAML or JSON); - reads stdin")
	return cmd
}

func readFacts(stdin io.Reader, path string) ([]models.RawFact, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" || path == "" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read facts: %w", err)
	}

	var f factFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse facts: %w", err)
	}
	raws := make([]models.RawFact, 0, len(f.Facts))
	for _, fact := range f.Facts {
		raws = append(raws, models.RawFact{
			Subjects:   fact.Subjects,
			Dimension:  fact.Dimension,
			Value:      fact.Value,
			Confidence: fact.Confidence,
		})
	}
	return raws, nil
}

func firstSubject(raws []models.RawFact) string {
	if len(raws) == 0 || len(raws[0].Subjects) == 0 {
		return ""
	}
	return strings.TrimSpace(raws[0].Subjects[0])
}

func newDimensionsCmd() *cobra.Command {
	var (
		gateway  string
		cacheTTL time.Duration
	)
	cmd := &cobra.Command{
		Use:   "dimensions",
		Short: "List dimensions and their allowed values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap := schema.Local()
			if gateway != "" {
				client := schema.NewClient(gateway, schema.WithCache(schema.NewCache(cacheTTL, nil)))
				fetched, err := client.Fetch(cmd.Context())
				if err != nil {
					return err
				}
				snap = fetched
			}
			out := cmd.OutOrStdout()
			for _, name := range snap.Names() {
				d := snap.Dimensions[name]
				fmt.Fprintf(out, "%s\t%s\t%s\n", name, d.Domain, strings.Join(d.ValidValues, ","))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&gateway, "gateway", "", "gateway base URL; empty lists the built-in registry")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", time.Minute, "how long a fetched schema stays fresh")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		caller   string
		facility string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a caller token signed with AUTH_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Only the auth section matters here; other fallbacks are ignored.
			cfg, _ := config.FromEnv()
			if !cfg.Auth.Enabled() {
				return errors.New("AUTH_SIGNING_KEY is not set")
			}
			if caller == "" {
				return errors.New("--caller is required")
			}
			svc := jwttoken.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
			token, err := svc.GenerateCallerToken(caller, facility, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "", "caller id (token subject)")
	cmd.Flags().StringVar(&facility, "facility", "", "nursery facility")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

type options struct {
	baseURL     string
	token       string
	secret      string
	issuer      string
	subject     string
	persona     string
	entity      string
	ids         []string
	concurrency int
	duration    time.Duration
	rps         int
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "load-tester",
		Short: "Rate-limited concurrent GETs against the HACT export endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.secret, "secret", "", "HS256 secret used to mint a token when --token is empty")
	cmd.PersistentFlags().StringVar(&opts.issuer, "issuer", "", "Issuer claim for minted tokens")
	cmd.PersistentFlags().StringVar(&opts.subject, "subject", "load-tester", "Subject claim for minted tokens")
	cmd.PersistentFlags().StringVar(&opts.persona, "persona", "manager", "Persona claim for minted tokens")

	cmd.Flags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Gateway base URL")
	cmd.Flags().StringVar(&opts.token, "token", "", "Bearer token")
	cmd.Flags().StringVar(&opts.entity, "entity", "property", "Entity type to export (property, tenant, case)")
	cmd.Flags().StringSliceVar(&opts.ids, "ids", []string{"42"}, "Entity ids to cycle through")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 10, "Number of concurrent workers")
	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 30*time.Second, "Duration of the load test")
	cmd.Flags().IntVar(&opts.rps, "rps", 200, "Requests per second limit")

	cmd.AddCommand(&cobra.Command{
		Use:   "token",
		Short: "Print a signed development token",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := mintToken(opts, time.Hour)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	})

	return cmd
}

func mintToken(opts *options, ttl time.Duration) (string, error) {
	if opts.secret == "" {
		return "", fmt.Errorf("--secret is required to mint a token")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     opts.subject,
		"persona": opts.persona,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	if opts.issuer != "" {
		claims["iss"] = opts.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(opts.secret))
}

func run(parent context.Context, opts *options) error {
	token := opts.token
	if token == "" {
		var err error
		if token, err = mintToken(opts, opts.duration+time.Minute); err != nil {
			return err
		}
	}
	if len(opts.ids) == 0 {
		return fmt.Errorf("--ids must not be empty")
	}

	log.Printf("Starting load test on %s/export/hact/%s", opts.baseURL, opts.entity)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", opts.concurrency, opts.duration, opts.rps)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, opts.duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(opts.rps), opts.rps/10+1)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[int]int64{}
		failures int64
	)

	for i := 0; i < opts.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{Timeout: 5 * time.Second}

			for n := workerID; ; n += opts.concurrency {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				id := opts.ids[n%len(opts.ids)]
				url := fmt.Sprintf("%s/export/hact/%s/%s", opts.baseURL, opts.entity, id)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				if err != nil {
					return
				}
				req.Header.Set("Authorization", "Bearer "+token)
				req.Header.Set("X-Request-ID", uuid.NewString())

				resp, err := client.Do(req)
				mu.Lock()
				if err != nil {
					if ctx.Err() == nil {
						failures++
					}
				} else {
					statuses[resp.StatusCode]++
				}
				mu.Unlock()
				if err == nil {
					resp.Body.Close()
				}
			}
		}(i)
	}

	wg.Wait()

	var total int64
	codes := make([]int, 0, len(statuses))
	for code, count := range statuses {
		codes = append(codes, code)
		total += count
	}
	sort.Ints(codes)

	log.Println("Load test finished.")
	log.Printf("Total Responses: %d", total)
	for _, code := range codes {
		log.Printf("  %d %s: %d", code, http.StatusText(code), statuses[code])
	}
	log.Printf("Transport errors: %d", failures)
	log.Printf("Actual RPS: %.2f", float64(total)/opts.duration.Seconds())
	return nil
}

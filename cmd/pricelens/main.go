// Command pricelens runs grocery price comparisons from the terminal
// against the same retailers the HTTP server uses.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/app"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/observability"
	"github.com/pricelens/backend/internal/usecase"
)

// backend is the slice of the application core the commands need
type backend interface {
	SearchByRetailer(ctx context.Context, retailer domain.RetailerID, query string, limit int) (*domain.SearchResult, error)
	CompareItem(ctx context.Context, query string, retailers []domain.RetailerID, limit int) (*domain.CompareItemResponse, error)
	CompareList(ctx context.Context, items []string, retailers []domain.RetailerID, limit int) (*domain.CompareListResponse, error)
}

type services struct {
	*usecase.SearchService
	*usecase.CompareService
}

type cli struct {
	out       io.Writer
	open      func(verbose bool) (backend, func(), error)
	retailers []string
	limit     int
	timeout   time.Duration
	verbose   bool
}

func main() {
	c := &cli{out: os.Stdout, open: openBackend}
	if err := c.rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// openBackend loads configuration the way the server does and wires the services
func openBackend(verbose bool) (backend, func(), error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: "pricelens-cli",
	})

	svc, err := app.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return services{svc.Search, svc.Compare}, svc.Close, nil
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pricelens",
		Short:        "Compare grocery prices across supermarkets",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringSliceVarP(&c.retailers, "retailers", "r", nil, "retailers to query (default: all enabled)")
	root.PersistentFlags().IntVarP(&c.limit, "limit", "n", 0, "products per retailer (1-50)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 60*time.Second, "overall time limit")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(c.itemCmd(), c.listCmd(), c.searchCmd())
	return root
}

func (c *cli) itemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "item <query>",
		Short: "Compare one product across retailers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), func(ctx context.Context, b backend) (any, error) {
				return b.CompareItem(ctx, strings.Join(args, " "), c.retailerIDs(), c.limit)
			})
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <item> [item...]",
		Short: "Rank retailers by the total cost of a shopping list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), func(ctx context.Context, b backend) (any, error) {
				return b.CompareList(ctx, args, c.retailerIDs(), c.limit)
			})
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <retailer> <query>",
		Short: "Search a single retailer",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), func(ctx context.Context, b backend) (any, error) {
				return b.SearchByRetailer(ctx, domain.RetailerID(args[0]), strings.Join(args[1:], " "), c.limit)
			})
		},
	}
}

func (c *cli) run(parent context.Context, call func(ctx context.Context, b backend) (any, error)) error {
	if c.limit < 0 || c.limit > 50 {
		return fmt.Errorf("%w: limit must be between 1 and 50", domain.ErrInvalidRequest)
	}

	b, closeFn, err := c.open(c.verbose)
	if err != nil {
		return fmt.Errorf("starting backend: %w", err)
	}
	defer closeFn()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	res, err := call(ctx, b)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func (c *cli) retailerIDs() []domain.RetailerID {
	ids := make([]domain.RetailerID, 0, len(c.retailers))
	for _, r := range c.retailers {
		ids = append(ids, domain.RetailerID(strings.ToLower(strings.TrimSpace(r))))
	}
	return ids
}

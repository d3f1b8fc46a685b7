package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/utafrali/storefront/internal/app"
	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/engine"
	"github.com/utafrali/storefront/internal/pricing"
	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/logger"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:           "storefront",
		Usage:          "cart pricing and free-shipping engine for Shopify and Bagisto storefronts",
		DefaultCommand: "serve",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "dotenv files to load before reading the environment",
				Value: []string{".env"},
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if _, err := pkgconfig.LoadEnvFiles(cmd.StringSlice("env-file")...); err != nil {
				return ctx, err
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the storefront HTTP API",
				Action: serve,
			},
			{
				Name:   "discounts",
				Usage:  "List the backend's free-shipping tiers in the display currency",
				Action: listDiscounts,
			},
			{
				Name:      "quote",
				Usage:     "Price a cart file against the free-shipping tiers",
				ArgsUsage: "<cart.json>",
				Action:    quote,
			},
		},
	}
}

func serve(ctx context.Context, _ *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(config.ServiceName, cfg.LogLevel)
	log.Info("starting storefront",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("commerce_backend", cfg.CommerceBackend),
	)

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	if err := application.Run(ctx); err != nil {
		return err
	}

	log.Info("storefront stopped")
	return nil
}

func listDiscounts(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(config.ServiceName, cfg.LogLevel, os.Stderr)

	backend, err := app.NewBackend(cfg, log)
	if err != nil {
		return err
	}
	if backend == nil {
		return fmt.Errorf("COMMERCE_ENDPOINT is not set")
	}

	eval := app.NewEvaluator(cfg)
	discounts := engine.LoadDiscounts(ctx, backend, log).List()
	return writeTiers(cmd.Root().Writer, eval, eval.Tiers(discounts))
}

func quote(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("quote takes exactly one cart file")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(config.ServiceName, cfg.LogLevel, os.Stderr)

	raw, err := os.ReadFile(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("read cart file: %w", err)
	}
	req, err := app.ParseQuoteRequest(raw, cfg.DisplayCurrency)
	if err != nil {
		return err
	}

	discounts := req.Discounts
	if !req.HasDiscounts {
		backend, err := app.NewBackend(cfg, log)
		if err != nil {
			return err
		}
		if backend != nil {
			discounts = engine.LoadDiscounts(ctx, backend, log).List()
		}
	}

	eval := app.NewEvaluator(cfg)
	state, summary, err := app.Quote(eval, req, discounts)
	if err != nil {
		return err
	}
	return writeQuote(cmd.Root().Writer, eval, state, summary)
}

func writeTiers(w io.Writer, eval *pricing.Evaluator, tiers []pricing.Tier) error {
	if len(tiers) == 0 {
		_, err := fmt.Fprintln(w, "no free-shipping discounts")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tTITLE\tMINIMUM\tIN "+eval.DisplayCurrency())
	for _, t := range tiers {
		d := t.Discount
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\n",
			discountLabel(d), d.Title, d.MinimumOrderAmount.StringFixed(2), d.CurrencyCode, eval.Format(t.Threshold))
	}
	return tw.Flush()
}

func writeQuote(w io.Writer, eval *pricing.Evaluator, state cart.State, summary pricing.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, item := range state.Items {
		line := eval.Subtotal([]domain.LineItem{item})
		fmt.Fprintf(tw, "%s\tx%d\t%s\t\n", item.Product.DisplayName(), item.Quantity, eval.Format(line))
	}
	fmt.Fprintf(tw, "Subtotal\t\t%s\t\n", eval.Format(summary.Subtotal))
	if state.ShippingRate != nil {
		title := state.ShippingRate.Title
		if summary.FreeShipping {
			title += pricing.FreeShippingSuffix
		}
		fmt.Fprintf(tw, "Shipping\t%s\t%s\t\n", title, eval.Format(summary.Shipping))
	}
	fmt.Fprintf(tw, "Total\t\t%s\t\n", eval.Format(summary.Total))
	if err := tw.Flush(); err != nil {
		return err
	}

	switch {
	case summary.Applicable != nil:
		_, err := fmt.Fprintf(w, "Free shipping with %s\n", discountLabel(summary.Applicable.Discount))
		return err
	case summary.Nearest != nil:
		_, err := fmt.Fprintf(w, "Add %s more for free shipping with %s\n",
			eval.Format(summary.Remaining), discountLabel(summary.Nearest.Discount))
		return err
	}
	return nil
}

func discountLabel(d domain.ShippingDiscount) string {
	switch {
	case d.Code != "":
		return d.Code
	case d.Title != "":
		return d.Title
	}
	return d.ID
}

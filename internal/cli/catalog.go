package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/freshcart/basket/internal/api"
	"github.com/freshcart/basket/internal/render"
)

var errNotSignedIn = errors.New("not signed in: run `basket login` first")

func newLookupCmd(cfgFile *string) *cobra.Command {
	var asJSON, watch bool

	cmd := &cobra.Command{
		Use:   "lookup <barcode>",
		Short: "Look up a product by barcode",
		Long: `Look up a product by its EAN-13, UPC-A, EAN-8 or GTIN-14 barcode.
Spaces and dashes are ignored and the check digit is verified.

With --watch the product is added to the price watchlist, which needs a
signed in session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := api.NormalizeBarcode(args[0])
			if err != nil {
				return err
			}

			e, err := setup(*cfgFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := contextOf(cmd)
			if watch && !e.restore(ctx).Authenticated() {
				return errNotSignedIn
			}

			p, fresh, err := e.db.GetProductByBarcode(code, e.cfg.ProductTTL)
			if err != nil {
				e.log.WithError(err).WithField("barcode", code).Warn("reading product cache")
			}
			if !fresh || p == nil {
				fetched, err := e.client.GetProductByBarcode(ctx, code)
				if api.IsNotFound(err) {
					return fmt.Errorf("no product found for barcode %s", code)
				}
				if err != nil {
					return fmt.Errorf("looking up %s: %w", code, err)
				}
				if err := e.db.PutProduct(fetched); err != nil {
					e.log.WithError(err).Warn("caching product")
				}
				p = fetched
			}

			if watch {
				if err := e.db.Watch(p); err != nil {
					return fmt.Errorf("adding to watchlist: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			printProduct(out, p)
			if watch {
				fmt.Fprintln(out, "Watching for price changes")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the product as JSON")
	cmd.Flags().BoolVar(&watch, "watch", false, "add the product to the watchlist")
	return cmd
}

func printProduct(w io.Writer, p *api.Product) {
	fmt.Fprintln(w, p.Name)
	if p.Brand != "" {
		fmt.Fprintf(w, "  Brand:   %s\n", p.Brand)
	}
	price := render.Price(p.PriceCents, p.Currency)
	if p.Unit != "" {
		price += " / " + p.Unit
	}
	fmt.Fprintf(w, "  Price:   %s\n", price)
	stock := "out of stock"
	if p.InStock {
		stock = "in stock"
	}
	fmt.Fprintf(w, "  Stock:   %s\n", stock)
	fmt.Fprintf(w, "  Barcode: %s\n", p.Barcode)
	if desc := render.DescriptionToText(p.Description, 72); desc != "" {
		fmt.Fprintln(w)
		for _, line := range strings.Split(desc, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
}

func newLocationCmd(cfgFile *string) *cobra.Command {
	var loc api.Location

	cmd := &cobra.Command{
		Use:   "location",
		Short: "Set the delivery location",
		Long: `Save the delivery location for the signed in account.

Example:
  basket location --lat 52.52 --lng 13.405 --address "Alexanderplatz 1, Berlin"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loc.Validate(); err != nil {
				return err
			}

			e, err := setup(*cfgFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := contextOf(cmd)
			if !e.restore(ctx).Authenticated() {
				return errNotSignedIn
			}

			err = e.client.SetLocation(ctx, loc)
			var se *api.StatusError
			if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
				// The saved token is no longer accepted.
				e.sessions.Logout(ctx)
				return errors.New("session expired: run `basket login` again")
			}
			if err != nil {
				return fmt.Errorf("saving location: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Delivery location set to %s\n", loc.Address)
			return nil
		},
	}
	cmd.Flags().Float64Var(&loc.Lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&loc.Lng, "lng", 0, "longitude")
	cmd.Flags().StringVar(&loc.Address, "address", "", "street address")
	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lng")
	cmd.MarkFlagRequired("address")
	return cmd
}

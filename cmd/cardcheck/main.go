package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"tuina_clinic_backend/internal/clinicclient"
	"tuina_clinic_backend/internal/membership"
	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

type options struct {
	apiURL     string
	token      string
	customerID int64
	fee        string
	timezone   string
}

func main() {
	var opts options
	flag.StringVar(&opts.apiURL, "api", utils.Getenv("CLINIC_API_URL", "http://localhost:8080/api/v1"), "Base URL of the clinic API")
	flag.StringVar(&opts.token, "token", os.Getenv("CLINIC_API_TOKEN"), "Bearer token")
	flag.Int64Var(&opts.customerID, "customer", 0, "Customer ID")
	flag.StringVar(&opts.fee, "fee", "", "Service fee to check against each card")
	flag.StringVar(&opts.timezone, "tz", "Asia/Shanghai", "Clinic time zone")
	flag.Parse()

	if opts.customerID <= 0 {
		fmt.Fprintln(os.Stderr, "usage: cardcheck -api URL -token T -customer ID [-fee F]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "cardcheck: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return fmt.Errorf("invalid time zone %q: %w", opts.timezone, err)
	}

	var fee *decimal.Decimal
	if opts.fee != "" {
		parsed, err := membership.ParseAmount(opts.fee)
		if err != nil {
			return err
		}
		fee = &parsed
	}

	client, err := clinicclient.New(opts.apiURL, clinicclient.WithToken(opts.token))
	if err != nil {
		return err
	}
	cards, err := client.GetCustomerMemberships(ctx, opts.customerID)
	if err != nil {
		return fmt.Errorf("fetching memberships: %w", err)
	}

	return report(out, opts.customerID, cards, fee, time.Now().In(loc))
}

func report(out io.Writer, customerID int64, cards []models.MembershipCard, fee *decimal.Decimal, now time.Time) error {
	eval := membership.Evaluate(cards, now)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	header := "ID\tNUMBER\tTYPE\tSTATUS\tEFFECTIVE\tREMAINING\tEXPIRES"
	if fee != nil {
		header += "\tCHARGE " + membership.FormatCurrency(*fee)
	}
	fmt.Fprintln(w, header)

	for i := range cards {
		card := cards[i]
		remaining := "-"
		if capacity, err := membership.RemainingCapacity(card); err == nil {
			remaining = capacity.DisplayText()
		}
		expires := "-"
		if card.ExpiryDate != nil {
			expires = card.ExpiryDate.Format("2006-01-02")
		}
		line := fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s\t%s",
			card.ID, card.CardNumber, card.CardType, card.Status, eval.PerCard[card.ID], remaining, expires)
		if fee != nil {
			line += "\t" + verdict(&card, *fee, now)
		}
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	_, err := fmt.Fprintf(out, "\ncustomer %d: %d card(s), membership status %s\n", customerID, len(cards), eval.Aggregate)
	return err
}

func verdict(card *models.MembershipCard, fee decimal.Decimal, now time.Time) string {
	err := membership.ValidatePayment(models.PaymentMembership, card, fee, decimal.Zero, false, now)
	if err == nil {
		return "ok"
	}
	var chargeErr *membership.ChargeError
	if errors.As(err, &chargeErr) {
		return chargeErr.Error()
	}
	return err.Error()
}
